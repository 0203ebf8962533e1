package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Env:        "local",
		AdminToken: "admin-secret",
		Storage:    config.Storage{Driver: "memory"},
		HTTPServer: config.HTTPServer{AddressHTTP: ":0", RateLimit: 1000, RateBurst: 1000},
		JWTToken:   config.JWTToken{JWTSecretKey: "secret", TokenTTL: time.Hour},
		Rollover: config.Rollover{
			Timezone:        "UTC",
			DefaultSlot:     "6-7AM",
			Workers:         2,
			ConflictRetries: 3,
		},
	}
	app, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(app.deps.Close)
	return app
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type session struct {
	User struct {
		ID            string  `json:"id"`
		CurrSlot      string  `json:"currSlot"`
		NextSlot      *string `json:"nextSlot"`
		PaymentStatus bool    `json:"paymentStatus"`
	} `json:"user"`
	Token string `json:"token"`
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestApp_RegisterUpdateAndRollover(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	code, env := do(t, h, http.MethodPost, "/api/users",
		`{"name":"Alice","email":"alice@example.com","dateOfBirth":"1990-05-17","password":"password123","currSlot":"6-7AM"}`, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var reg session
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	require.NotEmpty(t, reg.Token)
	bearer := map[string]string{"Authorization": "Bearer " + reg.Token}

	code, env = do(t, h, http.MethodPost, "/api/users",
		`{"name":"Alice","email":"ALICE@example.com","dateOfBirth":"1990-05-17","password":"password123","currSlot":"6-7AM"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user already exists", env.Error)

	code, _ = do(t, h, http.MethodPost, "/api/users/auth", `{"email":"alice@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = do(t, h, http.MethodPut, "/api/users/profile", `{"nextSlot":"8-9AM","paymentStatus":true}`, bearer)
	require.Equal(t, http.StatusOK, code, env.Error)
	var upd session
	require.NoError(t, json.Unmarshal(env.Data, &upd))
	require.NotNil(t, upd.User.NextSlot)
	assert.Equal(t, "8-9AM", *upd.User.NextSlot)
	assert.True(t, upd.User.PaymentStatus)

	// Alice зарегистрирована в прошлом периоде, Bob в текущем
	ctx := context.Background()
	alice, err := app.deps.Store.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	alice.RolledPeriod = "2000-01"
	require.NoError(t, app.deps.Store.SaveUser(ctx, alice))
	code, env = do(t, h, http.MethodPost, "/api/users",
		`{"name":"Bob","email":"bob@example.com","dateOfBirth":"1985-01-02","password":"password123","currSlot":"1-2PM"}`, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = do(t, h, http.MethodPost, "/api/admin/rollover", "", map[string]string{middlewarectx.AdminTokenHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = do(t, h, http.MethodPost, "/api/admin/rollover", "", map[string]string{middlewarectx.AdminTokenHeader: "admin-secret"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var report struct {
		Claimed bool `json:"claimed"`
		Updated int  `json:"updated"`
		Skipped int  `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.Claimed)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	code, env = do(t, h, http.MethodGet, "/api/users/profile", "", bearer)
	require.Equal(t, http.StatusOK, code)
	var prof struct {
		CurrSlot      string  `json:"currSlot"`
		NextSlot      *string `json:"nextSlot"`
		PaymentStatus bool    `json:"paymentStatus"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &prof))
	assert.Equal(t, "8-9AM", prof.CurrSlot)
	assert.Nil(t, prof.NextSlot)
	assert.False(t, prof.PaymentStatus)

	// повторный запуск за тот же период пропускается
	code, env = do(t, h, http.MethodPost, "/api/admin/rollover", "", map[string]string{middlewarectx.AdminTokenHeader: "admin-secret"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.False(t, report.Claimed)
}

func TestApp_HealthAndMetrics(t *testing.T) {
	h := newTestApp(t).Handler()

	code, _ := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot_booking_http_requests_total")
}
