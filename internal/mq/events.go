package mq

import "time"

// FileEventsChannel carries one message per audited file operation.
const FileEventsChannel = "file-events"

// FileEvent mirrors an audit-log row for external consumers.
type FileEvent struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Action   string    `json:"action"`
	Filename string    `json:"filename"`
	At       time.Time `json:"at"`
}
