package models

import "errors"

// Ошибки предметной области. Сервисы оборачивают их через %w,
// HTTP-слой сопоставляет их со статусами ответа.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidAge         = errors.New("age must be between 18 and 65")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUnauthorized       = errors.New("not authorized")
	ErrConflict           = errors.New("record was modified concurrently, retry later")
)
