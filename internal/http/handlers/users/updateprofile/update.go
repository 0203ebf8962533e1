// Package updateprofile реализует HTTP-обработчик изменения профиля:
// выбор следующего слота и подтверждение оплаты.
package updateprofile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-booking/internal/http/response"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/services/users"
)

// Request изменяемые поля профиля. Отсутствующие поля не меняются.
type Request struct {
	ID            string  `json:"id,omitempty" validate:"omitempty,uuid"`
	NextSlot      *string `json:"nextSlot,omitempty" example:"8-9AM"`
	PaymentStatus *bool   `json:"paymentStatus,omitempty"`
}

// Service описывает изменение профиля.
type Service interface {
	UpdateProfile(ctx context.Context, callerID string, in users.ProfileUpdate) (users.Session, error)
}

// Handler обрабатывает изменение профиля.
type Handler struct {
	log      *slog.Logger
	service  Service
	cookies  middlewarectx.Cookies
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, cookies middlewarectx.Cookies) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		cookies:  cookies,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменение профиля
// @Description Выбирает следующий слот и/или подтверждает оплату. Возвращает профиль и новый JWT.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Изменения профиля"
// @Success 200 {object} response.Response{data=response.Session} "Профиль обновлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Нет доступа"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Конкурентное изменение"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/profile [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.updateprofile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not authorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sess, err := h.service.UpdateProfile(r.Context(), callerID, users.ProfileUpdate{
		TargetUserID:  req.ID,
		NextSlot:      req.NextSlot,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		log.Warn("failed to update profile", sl.UserID(callerID), sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("profile updated", sl.UserID(callerID))
	h.cookies.Set(w, sess.Token)
	render.JSON(w, r, response.StatusOKWithData(response.Session{User: sess.User, Token: sess.Token}))
}
