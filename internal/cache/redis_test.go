package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	next := "8-9AM"
	expected := models.PublicUser{ID: "1", Name: "Alice", CurrSlot: "6-7AM", NextSlot: &next}
	stored, err := cache.Set(ctx, UserKey("1"), 1, expected, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	var actual models.PublicUser
	found, err := cache.Get(ctx, UserKey("1"), &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestSetKeepsNewerVersion(t *testing.T) {
	tests := []struct {
		name       string
		first      int64
		second     int64
		wantStored bool
		wantSlot   string
	}{
		{name: "newer replaces older", first: 1, second: 2, wantStored: true, wantSlot: "8-9AM"},
		{name: "older is ignored", first: 2, second: 1, wantStored: false, wantSlot: "6-7AM"},
		{name: "same version is ignored", first: 2, second: 2, wantStored: false, wantSlot: "6-7AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _ := setupTestCache(t)
			ctx := context.Background()

			_, err := cache.Set(ctx, UserKey("1"), tt.first, models.PublicUser{CurrSlot: "6-7AM"}, time.Minute)
			require.NoError(t, err)
			stored, err := cache.Set(ctx, UserKey("1"), tt.second, models.PublicUser{CurrSlot: "8-9AM"}, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStored, stored)

			var got models.PublicUser
			found, err := cache.Get(ctx, UserKey("1"), &got)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.wantSlot, got.CurrSlot)
		})
	}
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.PublicUser
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	_, err := cache.Set(ctx, "temp", 1, "value", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	var out string
	found, err := cache.Get(ctx, "temp", &out)
	require.NoError(t, err)
	assert.False(t, found)

	// после истечения принимается любая версия
	stored, err := cache.Set(ctx, "temp", 1, "again", time.Second)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestInvalidate(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	_, err := cache.Set(ctx, UserKey("2"), 5, "v", time.Minute)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, UserKey("2")))
	assert.False(t, mr.Exists(UserKey("2")))
}

func TestGetCorruptedValue(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.HSet("bad", "version", "1", "data", "{not json")

	var out models.PublicUser
	_, err := cache.Get(context.Background(), "bad", &out)
	assert.Error(t, err)
}

func TestInitServerUnavailable(t *testing.T) {
	_, err := InitServer(context.Background(), config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var c Nop
	ctx := context.Background()
	stored, err := c.Set(ctx, "k", 1, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
	found, err := c.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Invalidate(ctx, "k"))
}
