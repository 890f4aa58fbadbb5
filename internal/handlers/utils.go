package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/printables-app/server/internal/session"
)

type contextKey string

const contextSessionKey contextKey = "session"

const flashCookieName = "flash"

// RequireSession redirects to the login page when the request carries no
// live session, and otherwise injects the session into the context.
func RequireSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := sessions.Current(r)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), contextSessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(contextSessionKey).(session.Session)
	return s, ok
}

// setFlash stores a one-shot message in a short-lived cookie; takeFlash
// reads and clears it on the next page render.
func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}
