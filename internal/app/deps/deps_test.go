package deps

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-booking/internal/cache"
	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/rabbitmq"
	"github.com/magabrotheeeer/slot-booking/internal/storage/memory"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_MemoryWithoutOptionalDeps(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{Driver: "memory"}}

	d, err := Open(context.Background(), cfg, noopLogger())
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &memory.Storage{}, d.Store)
	assert.Equal(t, cache.Nop{}, d.Cache)
	assert.Equal(t, rabbitmq.NopPublisher{}, d.Publisher)
	assert.Empty(t, d.Checks)
}

func TestOpen_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Storage:         config.Storage{Driver: "memory"},
		RedisConnection: config.RedisConnection{AddressRedis: mr.Addr()},
	}

	d, err := Open(context.Background(), cfg, noopLogger())
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &cache.Cache{}, d.Cache)
	require.Contains(t, d.Checks, "redis")
	assert.NoError(t, d.Checks["redis"](context.Background()))

	mr.Close()
	assert.Error(t, d.Checks["redis"](context.Background()))
}

func TestOpen_RedisUnavailable(t *testing.T) {
	cfg := &config.Config{
		Storage:         config.Storage{Driver: "memory"},
		RedisConnection: config.RedisConnection{AddressRedis: "127.0.0.1:1"},
	}

	d, err := Open(context.Background(), cfg, noopLogger())
	assert.Error(t, err)
	assert.Nil(t, d)
}
