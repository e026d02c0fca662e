package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/devdiary/internal/export"
	"github.com/dukerupert/devdiary/internal/model"
	"github.com/dukerupert/devdiary/internal/store"
)

type ExportHandler struct {
	entries *store.EntryStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewExportHandler(es *store.EntryStore, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{entries: es, logger: logger, now: time.Now}
}

// Export downloads every entry in the requested format.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.entries.List(r.Context(), model.EntryFilter{})
	if err != nil {
		h.logger.Error("export: list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export entries")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, entries, h.now()); err != nil {
		h.logger.Error("export: render", "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export entries")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
