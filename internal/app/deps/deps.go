// Package deps собирает общие зависимости приложений: хранилище
// пользователей, кеш профилей и публикатор событий.
package deps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/slot-booking/internal/cache"
	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/migrations"
	"github.com/magabrotheeeer/slot-booking/internal/rabbitmq"
	"github.com/magabrotheeeer/slot-booking/internal/storage"
	"github.com/magabrotheeeer/slot-booking/internal/storage/memory"
	"github.com/magabrotheeeer/slot-booking/internal/storage/repository"
)

// ProfileCache кеш, которым пользуются сервисы.
type ProfileCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
	Close() error
}

// Publisher публикатор событий о слотах.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
	Close() error
}

// Pinger проверяет доступность зависимости.
type Pinger func(ctx context.Context) error

// Deps открытые зависимости и проверки их состояния.
type Deps struct {
	Store     storage.Store
	Cache     ProfileCache
	Publisher Publisher
	Checks    map[string]Pinger

	conn   *amqp.Connection
	logger *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// OpenStore открывает хранилище по storage.driver. Для postgres применяются
// миграции из storage.migrations_path.
func OpenStore(ctx context.Context, cfg config.Storage) (storage.Store, Pinger, error) {
	const op = "deps.OpenStore"

	if cfg.Driver == "memory" {
		return memory.New(), nil, nil
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, db.DB.PingContext, nil
}

// Open собирает все зависимости. Пустой адрес Redis отключает кеш,
// пустой URL RabbitMQ отключает публикацию событий.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	const op = "deps.Open"

	d := &Deps{
		Cache:     cache.Nop{},
		Publisher: rabbitmq.NopPublisher{},
		Checks:    map[string]Pinger{},
		logger:    logger,
	}

	store, ping, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.Store = store
	if ping != nil {
		d.Checks["storage"] = ping
	}

	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Cache = c
		d.Checks["redis"] = func(ctx context.Context) error {
			return c.Db.Ping(ctx).Err()
		}
	} else {
		logger.Warn("redis address is empty, profile cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.conn = conn
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetSlotQueues())
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Publisher = rabbitmq.NewPublisher(ch, rabbitmq.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, slot events are not published")
	}

	return d, nil
}

// Close закрывает открытые зависимости в обратном порядке.
func (d *Deps) Close() {
	if err := d.Publisher.Close(); err != nil {
		d.logger.Error("failed to close publisher", sl.Err(err))
	}
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := d.Cache.Close(); err != nil {
		d.logger.Error("failed to close cache", sl.Err(err))
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
