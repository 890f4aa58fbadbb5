package store

import (
	"context"
	"database/sql"
)

// LogRepository appends rows to the audit trail. There is no read path;
// the table exists for administrative inspection only.
type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Append(ctx context.Context, userID int, action, filename string) error {
	const query = `
		INSERT INTO logs (user_id, action, filename)
		VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, userID, action, filename)
	return err
}
