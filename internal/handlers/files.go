package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/printables-app/server/internal/services"
	"github.com/printables-app/server/internal/session"
	"github.com/printables-app/server/internal/storage"
)

const (
	maxMultipartMemory = 32 << 20
	formFieldFiles     = "files"
)

// FileHandler provides the file-cabinet page flow: dashboard, upload,
// download, delete and print. Every route requires a live session.
type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// FilesRouter registers the file routes behind the session middleware.
func FilesRouter(r chi.Router, files *services.FileService, sessions *session.Manager) {
	handler := NewFileHandler(files)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(sessions))
		r.Get("/dashboard", handler.Dashboard)
		r.Post("/upload", handler.Upload)
		r.Get("/files/{filename}", handler.Serve)
		r.Post("/delete/{filename}", handler.Delete)
		r.Post("/print/{filename}", handler.Print)
	})
}

func (h *FileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	names, err := h.files.List(r.Context(), s.Username)
	if err != nil {
		http.Error(w, "failed to list files", http.StatusInternalServerError)
		return
	}

	render(w, "dashboard.html", pageData{
		Username: s.Username,
		Files:    names,
		Flash:    takeFlash(w, r),
	})
}

// Upload accepts one or more files from the multipart "files" field.
// Files outside the extension allow-list are skipped silently.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	for _, header := range r.MultipartForm.File[formFieldFiles] {
		f, err := header.Open()
		if err != nil {
			continue
		}
		_, _, err = h.files.Upload(r.Context(), s.UserID, s.Username, header.Filename, f, header.Size)
		_ = f.Close()
		if err != nil {
			http.Error(w, "upload failed", http.StatusInternalServerError)
			return
		}
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Serve streams a file from the caller's own namespace.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	filename := chi.URLParam(r, "filename")
	rc, err := h.files.Open(r.Context(), s.Username, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, rc)
}

// Delete removes a file; a missing file is a no-op, not an error.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := h.files.Delete(r.Context(), s.UserID, s.Username, chi.URLParam(r, "filename")); err != nil {
		http.Error(w, "failed to delete file", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Print consumes a file and answers 204 with an empty body.
func (h *FileHandler) Print(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := h.files.Print(r.Context(), s.UserID, s.Username, chi.URLParam(r, "filename")); err != nil {
		http.Error(w, "failed to print file", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
