package types

import "time"

// Audit actions recorded for file operations.
const (
	ActionUpload = "upload"
	ActionDelete = "delete"
	ActionPrint  = "print"
)

// LogEntry is one row of the append-only audit trail. Entries are written
// once per effective file operation and never read back by the application.
type LogEntry struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Filename  string    `json:"filename" db:"filename"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
