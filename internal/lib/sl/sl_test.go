package sl_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("something went wrong")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestUserIDAndPeriod(t *testing.T) {
	assert.Equal(t, slog.String("user_id", "42"), sl.UserID("42"))
	assert.Equal(t, slog.String("period", "2026-10"), sl.Period("2026-10"))
}

func TestNew_LevelByEnv(t *testing.T) {
	ctx := context.Background()
	assert.True(t, sl.New("local").Enabled(ctx, slog.LevelDebug))
	assert.False(t, sl.New("prod").Enabled(ctx, slog.LevelDebug))
	assert.True(t, sl.New("prod").Enabled(ctx, slog.LevelInfo))
}
