package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
)

// Runner выполняет проход за момент времени.
type Runner interface {
	Run(ctx context.Context, now time.Time) (Report, error)
}

// Scheduler запускает проход по cron-расписанию в заданном часовом поясе.
type Scheduler struct {
	log        *slog.Logger
	runner     Runner
	cron       *cron.Cron
	loc        *time.Location
	runOnStart bool
	now        func() time.Time
	ctx        context.Context
}

// NewScheduler разбирает расписание spec и создаёт планировщик.
// При runOnStart проход за текущий период запускается сразу при старте,
// если он ещё не был завершён.
func NewScheduler(log *slog.Logger, runner Runner, spec string, loc *time.Location, runOnStart bool) (*Scheduler, error) {
	const op = "rollover.NewScheduler"

	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		log:        log.With(slog.String("component", "rollover-scheduler")),
		runner:     runner,
		cron:       cron.New(cron.WithLocation(loc)),
		loc:        loc,
		runOnStart: runOnStart,
		now:        time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("%s: invalid schedule %q: %w", op, spec, err)
	}
	return s, nil
}

// Run запускает планировщик и блокируется до отмены ctx. Задачи,
// выполняющиеся в момент остановки, дожидаются завершения.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	if s.runOnStart {
		s.runOnce(ctx)
	}

	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("rollover scheduled", slog.Time("next", e.Next))
	}

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("rollover scheduler stopped")
	return nil
}

func (s *Scheduler) tick() {
	s.runOnce(s.ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx, s.now().In(s.loc)); err != nil {
		s.log.Error("scheduled rollover failed", sl.Err(err))
	}
}
