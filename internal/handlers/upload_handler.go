// File: internal/handlers/upload_handler.go
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/thatchat/go-backend/internal/services"
)

// UploadHandler stores uploaded attachments on disk and returns the URL a
// message can reference.
type UploadHandler struct {
	UploadDir    string
	MaxSizeBytes int64
	Logger       services.Logger
}

func NewUploadHandler(uploadDir string, maxSizeMB int, logger services.Logger) (*UploadHandler, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create upload directory: %w", err)
	}
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &UploadHandler{
		UploadDir:    uploadDir,
		MaxSizeBytes: int64(maxSizeMB) << 20,
		Logger:       logger,
	}, nil
}

// Upload accepts one multipart file field named "file".
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSizeBytes)
	if err := r.ParseMultipartForm(h.MaxSizeBytes); err != nil {
		writeError(w, "File too large or invalid form", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, "No file uploaded", http.StatusBadRequest)
		return
	}

	ext := filepath.Ext(header.Filename)
	newName := uuid.New().String() + ext
	fullPath := filepath.Join(h.UploadDir, newName)

	dst, err := os.Create(fullPath)
	if err != nil {
		h.Logger.Error("could not create upload file", "error", err)
		writeError(w, "Could not store file", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.Logger.Error("could not write upload file", "error", err)
		writeError(w, "Could not store file", http.StatusInternalServerError)
		return
	}

	h.Logger.Info("file uploaded",
		"name", newName,
		"size_bytes", header.Size)

	writeJSON(w, http.StatusOK, map[string]string{"url": "/uploads/" + newName})
}
