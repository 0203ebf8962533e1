// Package storage описывает контракт хранилища пользователей и водяных знаков
// периодических задач, общий для PostgreSQL и in-memory реализаций.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/slot-booking/internal/models"
)

// Ошибки хранилища. Реализации оборачивают их через %w.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user with this email already exists")
	ErrVersionConflict = errors.New("user record was modified concurrently")
	ErrUnavailable     = errors.New("storage unavailable")
)

// Store объединяет операции над пользователями и водяными знаками.
type Store interface {
	// GetUser возвращает пользователя по идентификатору.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// GetUserByEmail возвращает пользователя по email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)
	// CreateUser сохраняет нового пользователя, заполняя ID, Version и временные метки.
	CreateUser(ctx context.Context, user *models.User) error
	// SaveUser сохраняет запись, если её версия не изменилась с момента чтения.
	// При успехе Version и UpdatedAt записи обновляются.
	SaveUser(ctx context.Context, user *models.User) error
	// ClaimPeriod захватывает период для задачи job на время lease. Возвращает
	// false, если задача за этот или более поздний период уже завершена либо
	// период удерживает другой запуск с неистёкшей арендой.
	ClaimPeriod(ctx context.Context, job, period string, lease time.Duration) (bool, error)
	// ReleasePeriod снимает аренду с незавершённого периода.
	ReleasePeriod(ctx context.Context, job, period string) error
	// CompletePeriod отмечает период задачи завершённым.
	CompletePeriod(ctx context.Context, job, period string) error
	// Close освобождает ресурсы хранилища.
	Close() error
}
