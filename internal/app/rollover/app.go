// Package rollover запускает однократный проход смены слотов, например
// из внешнего планировщика (cron, Kubernetes CronJob).
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/slot-booking/internal/app/deps"
	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/metrics"
	rolloverservice "github.com/magabrotheeeer/slot-booking/internal/services/rollover"
)

// App однократный проход.
type App struct {
	service *rolloverservice.Service
	deps    *deps.Deps
	logger  *slog.Logger
	now     func() time.Time
}

// New создает приложение прохода.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.rollover.New"

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d, err := deps.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	service := rolloverservice.New(logger, d.Store, d.Cache, d.Publisher, metrics.NewRollover(prometheus.NewRegistry()), rolloverservice.Options{
		DefaultSlot:     cfg.DefaultSlot,
		Workers:         cfg.Workers,
		ConflictRetries: cfg.ConflictRetries,
		Location:        loc,
		ProfileTTL:      cfg.ProfileTTL,
		ClaimLease:      cfg.ClaimLease,
	})

	return &App{
		service: service,
		deps:    d,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Run выполняет проход за текущий период. Ошибка возвращается, если проход
// не удалось начать или часть записей не удалось обработать.
func (a *App) Run(ctx context.Context) error {
	const op = "app.rollover.Run"
	defer a.deps.Close()

	report, err := a.service.Run(ctx, a.now())
	if err != nil {
		a.logger.Error("rollover failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%s: %d of %d records failed, period %s left incomplete", op, report.Failed, report.Total, report.Period)
	}
	return nil
}
