// Package cache предоставляет кеш профилей пользователей поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/slot-booking/internal/config"
)

// Cache хранит значения в Redis: под ключом лежит hash с полями
// version и data (JSON). Запись с меньшей версией не перетирает более новую.
type Cache struct {
	Db *redis.Client
}

// UserKey возвращает ключ кеша для профиля пользователя.
func UserKey(id string) string {
	return "user:" + id
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// setIfNewer пишет значение, только если в кеше нет версии не ниже переданной.
// KEYS[1] ключ, ARGV[1] версия, ARGV[2] JSON, ARGV[3] время жизни в мс.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Get читает значение по ключу в result. Возвращает false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.HGet(ctx, key, "data").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение версии version на время expiration. Если в кеше
// уже лежит та же или более новая версия, значение не пишется и
// возвращается false.
func (c *Cache) Set(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error) {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := setIfNewer.Run(ctx, c.Db, []string{key}, version, string(jsonData), expiration.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return stored == 1, nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает клиент Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Nop кеш-заглушка для запуска без Redis: всегда промах.
type Nop struct{}

// Get всегда возвращает промах.
func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set ничего не сохраняет.
func (Nop) Set(context.Context, string, int64, any, time.Duration) (bool, error) { return false, nil }

// Invalidate ничего не делает.
func (Nop) Invalidate(context.Context, string) error { return nil }

// Close ничего не делает.
func (Nop) Close() error { return nil }
