package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/slot-booking/internal/models"
	"github.com/magabrotheeeer/slot-booking/internal/storage"
)

const userColumns = `id, name, email, date_of_birth, password_hash, curr_slot, next_slot,
	payment_status, rolled_period, version, created_at, updated_at`

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := s.DB.GetContext(ctx, &u, query, id); err != nil {
		return nil, mapError(op, err)
	}
	return &u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(TRIM($1))`
	if err := s.DB.GetContext(ctx, &u, query, email); err != nil {
		return nil, mapError(op, err)
	}
	return &u, nil
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"

	var users []*models.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	if err := s.DB.SelectContext(ctx, &users, query); err != nil {
		return nil, mapError(op, err)
	}
	return users, nil
}

// CreateUser сохраняет нового пользователя. Нарушение уникальности email
// возвращается как storage.ErrUserExists.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.CreateUser"

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	id := uuid.New().String()
	query := `
		INSERT INTO users (id, name, email, date_of_birth, password_hash, curr_slot,
			next_slot, payment_status, rolled_period, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING version, created_at, updated_at`
	err := s.DB.QueryRowxContext(ctx, query,
		id,
		user.Name,
		user.Email,
		user.DateOfBirth,
		user.PasswordHash,
		user.CurrSlot,
		user.NextSlot,
		user.PaymentStatus,
		user.RolledPeriod,
	).Scan(&user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapError(op, err)
	}
	user.ID = id
	return nil
}

// SaveUser обновляет изменяемые поля пользователя, если версия в базе
// совпадает с user.Version. Email и дата создания не перезаписываются.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.SaveUser"

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `
		UPDATE users
		SET name = $3,
			date_of_birth = $4,
			password_hash = $5,
			curr_slot = $6,
			next_slot = $7,
			payment_status = $8,
			rolled_period = $9,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`
	err := s.DB.QueryRowxContext(ctx, query,
		user.ID,
		user.Version,
		user.Name,
		user.DateOfBirth,
		user.PasswordHash,
		user.CurrSlot,
		user.NextSlot,
		user.PaymentStatus,
		user.RolledPeriod,
	).Scan(&user.Version, &user.UpdatedAt)
	if err == nil {
		return nil
	}

	mapped := mapError(op, err)
	if !errors.Is(mapped, storage.ErrUserNotFound) {
		return mapped
	}
	// строка не обновилась: либо записи нет, либо версия устарела
	if _, getErr := s.GetUser(ctx, user.ID); getErr != nil {
		return fmt.Errorf("%s: %w", op, getErr)
	}
	return fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
}
