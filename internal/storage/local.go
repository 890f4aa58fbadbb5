package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Local stores files in one directory per username under a root
// directory. It is the file of record: the directory listing is the
// authoritative answer to "what files does this user have".
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) EnsureNamespace(_ context.Context, username string) error {
	return os.MkdirAll(filepath.Join(l.root, username), 0o755)
}

func (l *Local) List(_ context.Context, username string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *Local) Save(ctx context.Context, username, filename string, r io.Reader, _ int64) error {
	path, err := l.path(username, filename)
	if err != nil {
		return err
	}
	if err := l.EnsureNamespace(ctx, username); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (l *Local) Open(_ context.Context, username, filename string) (io.ReadCloser, error) {
	path, err := l.path(username, filename)
	if err != nil {
		return nil, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) Remove(_ context.Context, username, filename string) (bool, error) {
	path, err := l.path(username, filename)
	if err != nil {
		return false, nil
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Local) path(username, filename string) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, username, name), nil
}
