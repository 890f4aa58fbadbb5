package services

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/printables-app/server/internal/mq"
	"github.com/printables-app/server/internal/storage"
	"github.com/printables-app/server/types"
)

// AuditLog appends one entry per effective file operation.
type AuditLog interface {
	Append(ctx context.Context, userID int, action, filename string) error
}

// FileService manages a user's file cabinet. Every mutation is audited
// after the file-store outcome is known, and mirrored to the event
// publisher when one is configured.
type FileService struct {
	files  storage.FileStore
	logs   AuditLog
	events *mq.MQ
}

// NewFileService constructs a FileService. events may be nil.
func NewFileService(files storage.FileStore, logs AuditLog, events *mq.MQ) *FileService {
	return &FileService{
		files:  files,
		logs:   logs,
		events: events,
	}
}

// List returns the filenames in the user's namespace.
func (s *FileService) List(ctx context.Context, username string) ([]string, error) {
	return s.files.List(ctx, username)
}

// Upload stores one file. Files outside the extension allow-list are
// silently skipped: saved is false and nothing is written or logged.
func (s *FileService) Upload(ctx context.Context, userID int, username, filename string, r io.Reader, size int64) (name string, saved bool, err error) {
	if !storage.AllowedFile(filename) {
		return "", false, nil
	}
	name, err = storage.SanitizeFilename(filename)
	if err != nil {
		return "", false, nil
	}

	if err := s.files.Save(ctx, username, name, r, size); err != nil {
		return "", false, err
	}
	if err := s.record(ctx, userID, username, types.ActionUpload, name); err != nil {
		return "", false, err
	}
	return name, true, nil
}

// Open returns a reader for a file in the user's own namespace.
func (s *FileService) Open(ctx context.Context, username, filename string) (io.ReadCloser, error) {
	return s.files.Open(ctx, username, filename)
}

// Delete removes a file if present. A missing file is a benign no-op and
// leaves no audit entry.
func (s *FileService) Delete(ctx context.Context, userID int, username, filename string) error {
	return s.remove(ctx, userID, username, filename, types.ActionDelete)
}

// Print consumes a file: it is removed and the removal audited as a
// print. A missing file is a benign no-op.
func (s *FileService) Print(ctx context.Context, userID int, username, filename string) error {
	return s.remove(ctx, userID, username, filename, types.ActionPrint)
}

func (s *FileService) remove(ctx context.Context, userID int, username, filename, action string) error {
	removed, err := s.files.Remove(ctx, username, filename)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	name, err := storage.SanitizeFilename(filename)
	if err != nil {
		name = filename
	}
	return s.record(ctx, userID, username, action, name)
}

func (s *FileService) record(ctx context.Context, userID int, username, action, filename string) error {
	if err := s.logs.Append(ctx, userID, action, filename); err != nil {
		return err
	}
	s.publish(ctx, userID, username, action, filename)
	return nil
}

func (s *FileService) publish(ctx context.Context, userID int, username, action, filename string) {
	if s.events == nil {
		return
	}

	data, err := json.Marshal(mq.FileEvent{
		UserID:   userID,
		Username: username,
		Action:   action,
		Filename: filename,
		At:       time.Now().UTC(),
	})
	if err != nil {
		log.Printf("marshal file event: %v", err)
		return
	}
	if _, err := s.events.Publish(ctx, mq.FileEventsChannel, data, map[string]string{"action": action}); err != nil {
		log.Printf("publish file event: %v", err)
	}
}
