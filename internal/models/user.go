// Package models содержит доменную модель пользователя: учётные данные,
// текущий и следующий слот, статус оплаты и служебные поля версии.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/slot-booking/internal/lib/month"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	DateOfBirth   time.Time `db:"date_of_birth"`
	PasswordHash  string    `db:"password_hash"`
	CurrSlot      string    `db:"curr_slot"`
	NextSlot      *string   `db:"next_slot"`      // nil, если следующий слот не выбран
	PaymentStatus bool      `db:"payment_status"` // оплата текущего периода подтверждена
	RolledPeriod  string    `db:"rolled_period"`  // последний период, за который прошла смена слотов
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// PublicUser публичная проекция пользователя. Хэш пароля в неё не попадает.
type PublicUser struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	DateOfBirth   string  `json:"dateOfBirth"`
	CurrSlot      string  `json:"currSlot"`
	NextSlot      *string `json:"nextSlot"`
	PaymentStatus bool    `json:"paymentStatus"`
}

// Public возвращает публичную проекцию пользователя.
func (u *User) Public() PublicUser {
	var next *string
	if u.NextSlot != nil {
		v := *u.NextSlot
		next = &v
	}
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		DateOfBirth:   u.DateOfBirth.Format(month.DateLayout),
		CurrSlot:      u.CurrSlot,
		NextSlot:      next,
		PaymentStatus: u.PaymentStatus,
	}
}

// Clone возвращает глубокую копию записи.
func (u *User) Clone() *User {
	c := *u
	if u.NextSlot != nil {
		v := *u.NextSlot
		c.NextSlot = &v
	}
	return &c
}

// Validate проверяет запись перед сохранением в хранилище.
func (u *User) Validate() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return fmt.Errorf("%w: name is empty", ErrValidation)
	case strings.TrimSpace(u.Email) == "":
		return fmt.Errorf("%w: email is empty", ErrValidation)
	case u.PasswordHash == "":
		return fmt.Errorf("%w: password hash is empty", ErrValidation)
	case u.CurrSlot == "":
		return fmt.Errorf("%w: current slot is empty", ErrValidation)
	case u.DateOfBirth.IsZero():
		return fmt.Errorf("%w: date of birth is empty", ErrValidation)
	}
	return nil
}
