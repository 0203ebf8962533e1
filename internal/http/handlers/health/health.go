// Package health реализует проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-booking/internal/http/response"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger func(ctx context.Context) error

// Handler отвечает 200, если все проверки прошли, иначе 503.
type Handler struct {
	log    *slog.Logger
	checks map[string]Pinger
}

// New создает новый Handler. checks может быть пустым.
func New(log *slog.Logger, checks map[string]Pinger) *Handler {
	return &Handler{
		log:    log,
		checks: checks,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис работает"
// @Failure 503 {object} response.ErrorResponse "Зависимость недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for name, ping := range h.checks {
		if err := ping(r.Context()); err != nil {
			h.log.Error("health check failed", slog.String("check", name), sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(name+" unavailable"))
			return
		}
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"status": "ok",
	}))
}
