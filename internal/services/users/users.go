// Package users реализует регистрацию, аутентификацию и изменение профиля
// пользователя. Запись сохраняется с проверкой версии, конфликты
// повторяются на свежей копии.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/slot-booking/internal/cache"
	"github.com/magabrotheeeer/slot-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/slot-booking/internal/lib/month"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/models"
	"github.com/magabrotheeeer/slot-booking/internal/slot"
	"github.com/magabrotheeeer/slot-booking/internal/storage"
)

// Допустимый возраст при регистрации, включительно.
const (
	MinAge = 18
	MaxAge = 65
)

// Store операции хранилища, нужные сервису.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
}

// Cache кеш публичных профилей. Set не перетирает более новую версию.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Hasher хеширует и проверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Options настройки сервиса.
type Options struct {
	ProfileTTL      time.Duration
	ConflictRetries int
	Location        *time.Location // часовой пояс расчётного периода, как у смены слотов
}

// RegisterInput данные для регистрации.
type RegisterInput struct {
	Name        string
	Email       string
	DateOfBirth time.Time
	Password    string
	CurrSlot    string
}

// ProfileUpdate изменение профиля. nil-поля не применяются.
// TargetUserID пустой, если изменяется профиль вызывающего.
type ProfileUpdate struct {
	TargetUserID  string
	NextSlot      *string
	PaymentStatus *bool
}

// Session публичный профиль и выпущенный для него токен.
type Session struct {
	User  models.PublicUser
	Token string
}

// Service бизнес-логика работы с пользователями.
type Service struct {
	log    *slog.Logger
	store  Store
	cache  Cache
	hasher Hasher
	tokens jwt.Maker
	opts   Options
	now    func() time.Time
}

// New создаёт сервис пользователей.
func New(log *slog.Logger, store Store, c Cache, hasher Hasher, tokens jwt.Maker, opts Options) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if opts.ConflictRetries < 0 {
		opts.ConflictRetries = 0
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		log:    log,
		store:  store,
		cache:  c,
		hasher: hasher,
		tokens: tokens,
		opts:   opts,
		now:    time.Now,
	}
}

// Register регистрирует пользователя. Занятый email проверяется раньше
// возраста. Возраст считается полными годами на текущую дату и должен быть
// в пределах MinAge..MaxAge. Запись сразу отмечается текущим периодом.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "users.Register"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Name == "":
		return Session{}, fmt.Errorf("%s: %w: name is required", op, models.ErrValidation)
	case in.Email == "":
		return Session{}, fmt.Errorf("%s: %w: email is required", op, models.ErrValidation)
	case in.Password == "":
		return Session{}, fmt.Errorf("%s: %w: password is required", op, models.ErrValidation)
	case in.DateOfBirth.IsZero():
		return Session{}, fmt.Errorf("%s: %w: date of birth is required", op, models.ErrValidation)
	case !slot.Valid(in.CurrSlot):
		return Session{}, fmt.Errorf("%s: %w: invalid slot %q", op, models.ErrValidation, in.CurrSlot)
	}

	_, err := s.store.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrDuplicateUser)
	case !errors.Is(err, storage.ErrUserNotFound):
		return Session{}, translate(op, err)
	}

	now := s.now()
	age := month.FullYears(in.DateOfBirth, now.UTC())
	if age < MinAge || age > MaxAge {
		return Session{}, fmt.Errorf("%s: %w: got %d", op, models.ErrInvalidAge, age)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: hash,
		CurrSlot:     in.CurrSlot,
		// зарегистрированный в периоде пользователь в смене за этот период не участвует
		RolledPeriod: month.Period(now.In(s.opts.Location)),
	}
	// уникальность email окончательно проверяет хранилище
	if err := s.store.CreateUser(ctx, user); err != nil {
		return Session{}, translate(op, err)
	}
	s.log.Info("user registered", sl.UserID(user.ID))
	return s.session(op, user)
}

// Authenticate проверяет email и пароль. Неизвестный email и неверный
// пароль неразличимы для вызывающего.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	const op = "users.Authenticate"

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return Session{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return Session{}, translate(op, err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	return s.session(op, user)
}

// GetProfile возвращает публичный профиль, читая сначала из кеша.
func (s *Service) GetProfile(ctx context.Context, id string) (models.PublicUser, error) {
	const op = "users.GetProfile"

	var cached models.PublicUser
	found, err := s.cache.Get(ctx, cache.UserKey(id), &cached)
	if err != nil {
		s.log.Warn("profile cache read failed", sl.UserID(id), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.PublicUser{}, translate(op, err)
	}
	public := user.Public()
	s.cacheProfile(ctx, user)
	return public, nil
}

// cacheProfile кладёт проекцию записи в кеш под её версией. Если запись
// не удалась, ключ сбрасывается, чтобы не отдавать устаревший профиль.
func (s *Service) cacheProfile(ctx context.Context, user *models.User) {
	key := cache.UserKey(user.ID)
	if _, err := s.cache.Set(ctx, key, user.Version, user.Public(), s.opts.ProfileTTL); err != nil {
		s.log.Warn("profile cache write failed", sl.UserID(user.ID), sl.Err(err))
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.log.Warn("profile cache invalidation failed", sl.UserID(user.ID), sl.Err(err))
		}
	}
}

// UpdateProfile применяет изменения к профилю callerID. Менять чужой
// профиль нельзя. paymentStatus=false не сбрасывает оплату: это делает
// только ежемесячная смена слотов.
func (s *Service) UpdateProfile(ctx context.Context, callerID string, in ProfileUpdate) (Session, error) {
	const op = "users.UpdateProfile"

	target := in.TargetUserID
	if target == "" {
		target = callerID
	}
	if callerID == "" || target != callerID {
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if in.NextSlot != nil && *in.NextSlot != "" && !slot.Valid(*in.NextSlot) {
		return Session{}, fmt.Errorf("%s: %w: invalid slot %q", op, models.ErrValidation, *in.NextSlot)
	}

	for attempt := 0; ; attempt++ {
		user, err := s.store.GetUser(ctx, target)
		if err != nil {
			return Session{}, translate(op, err)
		}
		if !apply(user, in) {
			return s.session(op, user)
		}

		err = s.store.SaveUser(ctx, user)
		if err == nil {
			s.cacheProfile(ctx, user)
			return s.session(op, user)
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return Session{}, translate(op, err)
		}
		if attempt >= s.opts.ConflictRetries {
			s.log.Warn("profile update gave up after conflicts", sl.UserID(target), slog.Int("attempts", attempt+1))
			return Session{}, fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		s.log.Debug("profile update conflict, retrying", sl.UserID(target), slog.Int("attempt", attempt+1))
	}
}

// apply изменяет запись и сообщает, изменилось ли что-нибудь.
func apply(user *models.User, in ProfileUpdate) bool {
	changed := false
	if in.NextSlot != nil && *in.NextSlot != "" {
		if user.NextSlot == nil || *user.NextSlot != *in.NextSlot {
			v := *in.NextSlot
			user.NextSlot = &v
			changed = true
		}
	}
	if in.PaymentStatus != nil && *in.PaymentStatus && !user.PaymentStatus {
		user.PaymentStatus = true
		changed = true
	}
	return changed
}

func (s *Service) session(op string, user *models.User) (Session, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{User: user.Public(), Token: token}, nil
}

// translate переводит ошибки хранилища в ошибки предметной области.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	case errors.Is(err, storage.ErrUserExists):
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateUser)
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
