// Package logout реализует выход пользователя: cookie с токеном истекает.
package logout

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-booking/internal/http/response"
)

// Handler сбрасывает cookie с токеном.
type Handler struct {
	cookies middlewarectx.Cookies
}

// New создает новый Handler.
func New(cookies middlewarectx.Cookies) *Handler {
	return &Handler{cookies: cookies}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Удаляет cookie с JWT. Выданные ранее токены продолжают действовать до истечения срока.
// @Tags Users
// @Produce  json
// @Success 200 {object} response.Response "Пользователь вышел"
// @Router /users/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"message": "logged out successfully",
	}))
}
