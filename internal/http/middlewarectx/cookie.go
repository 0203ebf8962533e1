package middlewarectx

import (
	"net/http"
	"time"
)

// CookieName имя cookie с сессионным токеном.
const CookieName = "jwt"

// Cookies выставляет и сбрасывает cookie с токеном.
type Cookies struct {
	TTL    time.Duration
	Secure bool // только HTTPS, включается вне локального окружения
}

// Set выставляет http-only cookie с токеном.
func (c Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

// Clear истекает cookie с токеном.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
