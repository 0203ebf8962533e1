// Package register реализует HTTP-обработчик регистрации пользователя.
package register

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
	"github.com/magabrotheeeer/slot-booking/internal/lib/month"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/services/users"
)

// Request входные данные для регистрации.
type Request struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	DateOfBirth string `json:"dateOfBirth" validate:"required" example:"1990-05-17"`
	Password    string `json:"password" validate:"required,min=6"`
	CurrSlot    string `json:"currSlot" validate:"required" example:"6-7AM"`
}

// Service описывает бизнес-логику регистрации.
type Service interface {
	Register(ctx context.Context, in users.RegisterInput) (users.Session, error)
}

// Handler обрабатывает регистрацию.
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
// @Summary Регистрация пользователя
// @Description Создаёт пользователя с текущим слотом. Возраст должен быть от 18 до 65 лет.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 201 {object} response.Response{data=response.Session} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Email занят или возраст вне диапазона"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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
	dob, err := month.ParseDate(req.DateOfBirth)
	if err != nil {
		log.Warn("invalid date of birth", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("field DateOfBirth must be a date in format 2006-01-02"))
		return
	}

	sess, err := h.service.Register(r.Context(), users.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		DateOfBirth: dob,
		Password:    req.Password,
		CurrSlot:    req.CurrSlot,
	})
	if err != nil {
		log.Warn("registration failed", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("user registered", sl.UserID(sess.User.ID))
	h.cookies.Set(w, sess.Token)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(response.Session{User: sess.User, Token: sess.Token}))
}
