package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/printables-app/server/internal/session"
)

// SessionRepository is the Postgres-backed session store.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s session.Session) error {
	const query = `
		INSERT INTO sessions (token, user_id, username, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, s.Token, s.UserID, s.Username, s.ExpiresAt, s.CreatedAt)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, token string) (session.Session, error) {
	const query = `
		SELECT token, user_id, username, expires_at, created_at
		FROM sessions
		WHERE token = $1`
	var s session.Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&s.Token,
		&s.UserID,
		&s.Username,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}
