package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned when no session exists for a token.
var ErrNotFound = errors.New("session not found")

// Session binds a server-issued opaque token to an authenticated user.
type Session struct {
	Token     string
	UserID    int
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store persists sessions. Memory serves tests; the Postgres-backed
// implementation lives in internal/store.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Manager issues, resolves and destroys cookie-borne sessions.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewManager(store Store, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Issue creates a session for the user and sets the session cookie.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, userID int, username string) (Session, error) {
	now := time.Now()
	s := Session{
		Token:     newToken(),
		UserID:    userID,
		Username:  username,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Current resolves the request's session cookie to a live session.
func (m *Manager) Current(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, false
	}

	s, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		return Session{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		_ = m.store.Delete(r.Context(), s.Token)
		return Session{}, false
	}
	return s, true
}

// Destroy deletes the server-side session record and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		_ = m.store.Delete(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
