package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-booking/internal/http/response"
)

// AdminTokenHeader заголовок с токеном администратора.
const AdminTokenHeader = "X-Admin-Token"

// AdminMiddleware пропускает только запросы с верным токеном администратора.
// Пустой token закрывает административные маршруты полностью.
func AdminMiddleware(log *slog.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin endpoints are disabled"))
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn("admin token rejected", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("not authorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
