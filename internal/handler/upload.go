package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dukerupert/devdiary/internal/upload"
)

// multipartMemory is the in-memory threshold before parts spill to disk.
const multipartMemory = 32 << 20

type UploadHandler struct {
	store  upload.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewUploadHandler(us upload.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: us, logger: logger, now: time.Now}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file upload")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name := upload.GenerateFilename(header.Filename, h.now())
	url, err := h.store.Save(r.Context(), name, file, header.Size, contentType)
	if err != nil {
		h.logger.Error("save upload", "filename", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	h.logger.Info("file uploaded", "filename", name, "size", header.Size)
	writeJSON(w, http.StatusCreated, upload.Result{
		URL:          url,
		Filename:     name,
		OriginalName: header.Filename,
		MimeType:     contentType,
		Size:         header.Size,
	})
}
