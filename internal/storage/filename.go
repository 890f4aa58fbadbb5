package storage

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned when a filename sanitizes down to nothing.
var ErrInvalidName = errors.New("invalid filename")

// allowedExtensions is the fixed allow-list checked before any upload is
// persisted.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".jpg":  true,
	".png":  true,
}

// AllowedFile reports whether the filename carries an allow-listed
// extension. The check is case-insensitive on the extension.
func AllowedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return allowedExtensions[ext]
}

// SanitizeFilename reduces an untrusted filename to a safe single path
// component. Directory parts are stripped, unsafe characters dropped and
// spaces collapsed to underscores. Every path the file store builds goes
// through this function; it is the single traversal gate.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}
