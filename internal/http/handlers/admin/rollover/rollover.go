// Package rollover реализует административный запуск смены слотов.
package rollover

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-booking/internal/http/response"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	rolloverservice "github.com/magabrotheeeer/slot-booking/internal/services/rollover"
)

// Service запускает проход смены слотов.
type Service interface {
	Run(ctx context.Context, now time.Time) (rolloverservice.Report, error)
}

// Report итоги прохода в ответе.
type Report struct {
	Period     string    `json:"period" example:"2024-02"`
	Claimed    bool      `json:"claimed"`
	Total      int       `json:"total"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Handler запускает проход немедленно.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Запуск смены слотов
// @Description Запускает проход за текущий период. Если период уже обработан, проход пропускается (claimed=false).
// @Tags Admin
// @Produce  json
// @Param X-Admin-Token header string true "Токен администратора"
// @Success 200 {object} response.Response{data=Report} "Итоги прохода"
// @Failure 401 {object} response.ErrorResponse "Неверный токен"
// @Failure 409 {object} response.ErrorResponse "Проход уже выполняется"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/rollover [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.rollover"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// обрыв соединения клиента не должен прерывать проход
	report, err := h.service.Run(context.WithoutCancel(r.Context()), h.now())
	if err != nil {
		log.Error("manual rollover failed", sl.Err(err))
		if errors.Is(err, rolloverservice.ErrInProgress) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("rollover already in progress"))
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to run rollover"))
		return
	}

	log.Info("manual rollover finished", sl.Period(report.Period), slog.Bool("claimed", report.Claimed))
	render.JSON(w, r, response.StatusOKWithData(Report{
		Period:     report.Period,
		Claimed:    report.Claimed,
		Total:      report.Total,
		Updated:    report.Updated,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}))
}
