// Package memory реализует хранилище пользователей в памяти процесса.
// Используется для локального запуска и в тестах сервисов.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/slot-booking/internal/models"
	"github.com/magabrotheeeer/slot-booking/internal/storage"
)

type watermark struct {
	period       string
	completed    bool
	claimedUntil time.Time
}

// Storage хранит пользователей в map под RWMutex. Наружу всегда
// отдаются копии, поэтому вызывающий код не может изменить запись в обход SaveUser.
type Storage struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	emails     map[string]string
	watermarks map[string]watermark
	now        func() time.Time
}

var _ storage.Store = (*Storage)(nil)

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:      make(map[string]*models.User),
		emails:     make(map[string]string),
		watermarks: make(map[string]watermark),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(_ context.Context, id string) (*models.User, error) {
	const op = "memory.GetUser"
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return u.Clone(), nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	const op = "memory.GetUserByEmail"
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return s.users[id].Clone(), nil
}

// ListUsers возвращает всех пользователей в порядке создания.
func (s *Storage) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CreateUser сохраняет нового пользователя.
func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	const op = "memory.CreateUser"
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, ok := s.emails[key]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
	}

	now := s.now()
	user.ID = uuid.New().String()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = user.Clone()
	s.emails[key] = user.ID
	return nil
}

// SaveUser обновляет запись, сверяя версию (compare-and-swap).
func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "memory.SaveUser"
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if current.Version != user.Version {
		return fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
	}

	saved := user.Clone()
	// email и дата создания после регистрации не меняются
	saved.Email = current.Email
	saved.CreatedAt = current.CreatedAt
	saved.Version = current.Version + 1
	saved.UpdatedAt = s.now()
	s.users[user.ID] = saved

	user.Version = saved.Version
	user.UpdatedAt = saved.UpdatedAt
	return nil
}

// ClaimPeriod захватывает период для задачи на время lease.
func (s *Storage) ClaimPeriod(_ context.Context, job, period string, lease time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	wm, ok := s.watermarks[job]
	switch {
	case !ok || wm.period < period:
		s.watermarks[job] = watermark{period: period, claimedUntil: now.Add(lease)}
		return true, nil
	case wm.period == period && !wm.completed && !now.Before(wm.claimedUntil):
		wm.claimedUntil = now.Add(lease)
		s.watermarks[job] = wm
		return true, nil
	default:
		return false, nil
	}
}

// ReleasePeriod снимает аренду с незавершённого периода.
func (s *Storage) ReleasePeriod(_ context.Context, job, period string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wm, ok := s.watermarks[job]
	if ok && wm.period == period && !wm.completed {
		wm.claimedUntil = time.Time{}
		s.watermarks[job] = wm
	}
	return nil
}

// CompletePeriod отмечает период задачи завершённым.
func (s *Storage) CompletePeriod(_ context.Context, job, period string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wm, ok := s.watermarks[job]
	if ok && wm.period == period {
		wm.completed = true
		wm.claimedUntil = time.Time{}
		s.watermarks[job] = wm
	}
	return nil
}

// Close ничего не делает: in-memory хранилищу нечего освобождать.
func (s *Storage) Close() error {
	return nil
}
