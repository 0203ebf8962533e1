package models

import "time"

// SlotRolledEvent публикуется для каждого пользователя, чей слот
// сменился при ежемесячном переходе.
type SlotRolledEvent struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Period       string `json:"period"`
	PreviousSlot string `json:"previous_slot"`
	CurrentSlot  string `json:"current_slot"`
}

// RolloverCompletedEvent публикуется по завершении прохода по всем пользователям.
type RolloverCompletedEvent struct {
	Period     string    `json:"period"`
	Total      int       `json:"total"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
