// Package rollover реализует ежемесячную смену слотов: проход по всем
// пользователям, перенос выбранного следующего слота в текущий и сброс
// статуса оплаты. Проход выполняется не более одного раза за период.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/slot-booking/internal/cache"
	"github.com/magabrotheeeer/slot-booking/internal/lib/month"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/metrics"
	"github.com/magabrotheeeer/slot-booking/internal/models"
	"github.com/magabrotheeeer/slot-booking/internal/rabbitmq"
	"github.com/magabrotheeeer/slot-booking/internal/slot"
	"github.com/magabrotheeeer/slot-booking/internal/storage"
)

// JobName имя задачи в таблице водяных знаков.
const JobName = "slot-rollover"

// DefaultClaimLease время, на которое проход удерживает период.
const DefaultClaimLease = time.Hour

// ErrInProgress возвращается, если проход уже выполняется в этом процессе.
var ErrInProgress = errors.New("rollover already in progress")

// Store операции хранилища, нужные проходу.
type Store interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	ClaimPeriod(ctx context.Context, job, period string, lease time.Duration) (bool, error)
	ReleasePeriod(ctx context.Context, job, period string) error
	CompletePeriod(ctx context.Context, job, period string) error
}

// Cache хранит профили под версией записи.
type Cache interface {
	Set(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Publisher публикует события о смене слотов.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Options настройки прохода.
type Options struct {
	DefaultSlot     string
	Workers         int
	ConflictRetries int
	Location        *time.Location
	ProfileTTL      time.Duration
	// ClaimLease сколько период удерживается за запуском. Пока аренда не
	// истекла, другие процессы пропускают период.
	ClaimLease time.Duration
}

// Report итоги прохода.
type Report struct {
	Period     string
	Claimed    bool // false, если период уже обработан и проход пропущен
	Total      int
	Updated    int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Service выполняет проход смены слотов.
type Service struct {
	log       *slog.Logger
	store     Store
	cache     Cache
	publisher Publisher
	metrics   *metrics.Rollover
	opts      Options
	running   sync.Mutex
}

// New создаёт сервис смены слотов. cache и publisher могут быть nil.
func New(log *slog.Logger, store Store, c Cache, publisher Publisher, m *metrics.Rollover, opts Options) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if publisher == nil {
		publisher = rabbitmq.NopPublisher{}
	}
	if opts.DefaultSlot == "" {
		opts.DefaultSlot = slot.DefaultSlot
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ConflictRetries < 0 {
		opts.ConflictRetries = 0
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = DefaultClaimLease
	}
	return &Service{
		log:       log.With(slog.String("job", JobName)),
		store:     store,
		cache:     c,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
	}
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Run выполняет проход за период, в который попадает now. Ошибки отдельных
// записей логируются и не прерывают проход. Ошибка возвращается, только
// если проход не удалось начать.
func (s *Service) Run(ctx context.Context, now time.Time) (Report, error) {
	const op = "rollover.Run"

	if !s.running.TryLock() {
		return Report{}, fmt.Errorf("%s: %w", op, ErrInProgress)
	}
	defer s.running.Unlock()

	started := time.Now()
	period := month.Period(now.In(s.opts.Location))
	report := Report{Period: period, StartedAt: started}
	log := s.log.With(sl.Period(period))

	claimed, err := s.store.ClaimPeriod(ctx, JobName, period, s.opts.ClaimLease)
	if err != nil {
		s.observeRun("error", started)
		return report, fmt.Errorf("%s: claim period: %w", op, err)
	}
	if !claimed {
		log.Info("rollover period is done or held by another run, skipping")
		report.FinishedAt = time.Now()
		s.observeRun("skipped", started)
		return report, nil
	}
	report.Claimed = true
	completed := false
	defer func() {
		if !completed {
			s.release(ctx, log, period)
		}
	}()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.observeRun("error", started)
		return report, fmt.Errorf("%s: list users: %w", op, err)
	}
	report.Total = len(users)
	log.Info("monthly rollover started", slog.Int("users", len(users)), slog.Int("workers", s.opts.Workers))

	var updated, skipped, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for _, u := range users {
		g.Go(func() error {
			switch s.rollOne(ctx, log, u, period) {
			case outcomeUpdated:
				updated.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Updated = int(updated.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	if s.metrics != nil {
		s.metrics.Records.WithLabelValues(metrics.OutcomeUpdated).Add(float64(report.Updated))
		s.metrics.Records.WithLabelValues(metrics.OutcomeSkipped).Add(float64(report.Skipped))
		s.metrics.Records.WithLabelValues(metrics.OutcomeFailed).Add(float64(report.Failed))
	}

	result := "completed"
	if report.Failed == 0 {
		// с ошибками период остаётся незавершённым, следующий запуск повторит проход
		if err := s.store.CompletePeriod(ctx, JobName, period); err != nil {
			log.Error("failed to complete period", sl.Err(err))
			result = "incomplete"
		} else {
			completed = true
		}
	} else {
		result = "incomplete"
	}
	report.FinishedAt = time.Now()
	s.observeRun(result, started)

	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyRolloverCompleted, models.RolloverCompletedEvent{
		Period:     period,
		Total:      report.Total,
		Updated:    report.Updated,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}); err != nil {
		log.Warn("failed to publish rollover completed event", sl.Err(err))
	}

	log.Info("monthly rollover done",
		slog.Int("total", report.Total),
		slog.Int("updated", report.Updated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("took", report.FinishedAt.Sub(started)),
	)
	return report, nil
}

// rollOne переводит одну запись. При конфликте версий запись
// перечитывается и переход применяется заново.
func (s *Service) rollOne(ctx context.Context, log *slog.Logger, u *models.User, period string) outcome {
	log = log.With(sl.UserID(u.ID))
	current := u
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			log.Error("rollover interrupted", sl.Err(err))
			return outcomeFailed
		}

		next, changed := slot.Advance(*current, s.opts.DefaultSlot, period)
		if !changed {
			return outcomeSkipped
		}

		err := s.store.SaveUser(ctx, &next)
		if err == nil {
			s.afterSave(ctx, log, current, &next, period)
			return outcomeUpdated
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt >= s.opts.ConflictRetries {
			log.Error("failed to roll over user", slog.Int("attempt", attempt+1), sl.Err(err))
			return outcomeFailed
		}

		log.Debug("version conflict, re-reading user", slog.Int("attempt", attempt+1))
		fresh, err := s.store.GetUser(ctx, u.ID)
		if err != nil {
			log.Error("failed to re-read user", sl.Err(err))
			return outcomeFailed
		}
		current = fresh
	}
}

// release снимает аренду незавершённого периода, чтобы следующий запуск
// повторил проход, не дожидаясь её истечения.
func (s *Service) release(ctx context.Context, log *slog.Logger, period string) {
	if err := s.store.ReleasePeriod(context.WithoutCancel(ctx), JobName, period); err != nil {
		log.Warn("failed to release period", sl.Err(err))
	}
}

func (s *Service) afterSave(ctx context.Context, log *slog.Logger, before, after *models.User, period string) {
	key := cache.UserKey(after.ID)
	if _, err := s.cache.Set(ctx, key, after.Version, after.Public(), s.opts.ProfileTTL); err != nil {
		log.Warn("failed to refresh profile cache", sl.Err(err))
		if err := s.cache.Invalidate(ctx, key); err != nil {
			log.Warn("failed to invalidate profile cache", sl.Err(err))
		}
	}
	err := s.publisher.Publish(ctx, rabbitmq.RoutingKeySlotRolled, models.SlotRolledEvent{
		UserID:       after.ID,
		Name:         after.Name,
		Email:        after.Email,
		Period:       period,
		PreviousSlot: before.CurrSlot,
		CurrentSlot:  after.CurrSlot,
	})
	if err != nil {
		log.Warn("failed to publish slot rolled event", sl.Err(err))
	}
}

func (s *Service) observeRun(result string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Runs.WithLabelValues(result).Inc()
	s.metrics.Duration.Observe(time.Since(started).Seconds())
}
