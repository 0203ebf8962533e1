// Package api собирает HTTP-сервер сервиса записи на слоты.
package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/admin/rollover"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/health"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/users/login"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/users/logout"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/users/profile"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/users/register"
	"github.com/magabrotheeeer/slot-booking/internal/http/handlers/users/updateprofile"
	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-booking/internal/metrics"
	rolloverservice "github.com/magabrotheeeer/slot-booking/internal/services/rollover"
	usersservice "github.com/magabrotheeeer/slot-booking/internal/services/users"
)

// Routes зависимости маршрутизатора.
type Routes struct {
	Logger     *slog.Logger
	Users      *usersservice.Service
	Rollover   *rolloverservice.Service
	Tokens     middlewarectx.TokenParser
	Cookies    middlewarectx.Cookies
	Limiter    *rate.Limiter
	AdminToken string
	Checks     map[string]health.Pinger
	HTTP       *metrics.HTTP
	Gatherer   prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, rt Routes) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		rt.HTTP.Middleware,
	)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(rt.Logger, rt.Limiter))

			// Открытые конечные точки
			r.Post("/users", register.New(rt.Logger, rt.Users, rt.Cookies).ServeHTTP)
			r.Post("/users/auth", login.New(rt.Logger, rt.Users, rt.Cookies).ServeHTTP)
			r.Post("/users/logout", logout.New(rt.Cookies).ServeHTTP)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(rt.Tokens, rt.Logger))
				r.Get("/users/profile", profile.New(rt.Logger, rt.Users).ServeHTTP)
				r.Put("/users/profile", updateprofile.New(rt.Logger, rt.Users, rt.Cookies).ServeHTTP)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminMiddleware(rt.Logger, rt.AdminToken))
			r.Post("/admin/rollover", rollover.New(rt.Logger, rt.Rollover).ServeHTTP)
		})
	})

	r.Get("/health", health.New(rt.Logger, rt.Checks).ServeHTTP)
	r.Handle("/metrics", metrics.Handler(rt.Gatherer))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
