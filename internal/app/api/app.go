package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/slot-booking/internal/app/deps"
	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/health"
	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/slot-booking/internal/lib/password"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/metrics"
	rolloverservice "github.com/magabrotheeeer/slot-booking/internal/services/rollover"
	usersservice "github.com/magabrotheeeer/slot-booking/internal/services/users"
)

// App HTTP-сервер и планировщик смены слотов.
type App struct {
	server    *http.Server
	scheduler *rolloverservice.Scheduler
	deps      *deps.Deps
	logger    *slog.Logger
}

// New собирает приложение из конфига.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d, err := deps.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	users := usersservice.New(logger, d.Store, d.Cache, password.NewHasher(0), tokens, usersservice.Options{
		ProfileTTL:      cfg.ProfileTTL,
		ConflictRetries: cfg.ConflictRetries,
		Location:        loc,
	})
	rollover := rolloverservice.New(logger, d.Store, d.Cache, d.Publisher, metrics.NewRollover(reg), rolloverservice.Options{
		DefaultSlot:     cfg.DefaultSlot,
		Workers:         cfg.Workers,
		ConflictRetries: cfg.ConflictRetries,
		Location:        loc,
		ProfileTTL:      cfg.ProfileTTL,
		ClaimLease:      cfg.ClaimLease,
	})

	var scheduler *rolloverservice.Scheduler
	if cfg.Rollover.Enabled {
		scheduler, err = rolloverservice.NewScheduler(logger, rollover, cfg.Schedule, loc, cfg.RunOnStart)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		logger.Info("rollover scheduler disabled")
	}

	checks := make(map[string]health.Pinger, len(d.Checks))
	for name, ping := range d.Checks {
		checks[name] = health.Pinger(ping)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Routes{
		Logger:     logger,
		Users:      users,
		Rollover:   rollover,
		Tokens:     tokens,
		Cookies:    middlewarectx.Cookies{TTL: cfg.TokenTTL, Secure: cfg.Env != "local"},
		Limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		AdminToken: cfg.AdminToken,
		Checks:     checks,
		HTTP:       metrics.NewHTTP(reg),
		Gatherer:   reg,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		scheduler: scheduler,
		deps:      d,
		logger:    logger,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и
// планировщик и закрывает зависимости.
func (a *App) Run(ctx context.Context) error {
	defer a.deps.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		if err := a.server.Shutdown(timeoutCtx); err != nil {
			a.logger.Error("failed to shutdown HTTP server", sl.Err(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

// Handler возвращает маршрутизатор приложения.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
