package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		checks   map[string]Pinger
		wantCode int
	}{
		{name: "no checks", wantCode: http.StatusOK},
		{
			name:     "healthy",
			checks:   map[string]Pinger{"storage": func(context.Context) error { return nil }},
			wantCode: http.StatusOK,
		},
		{
			name:     "storage down",
			checks:   map[string]Pinger{"storage": func(context.Context) error { return errors.New("refused") }},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(logger, tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
