package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/devdiary/internal/auth"
	"github.com/dukerupert/devdiary/internal/backup"
	"github.com/dukerupert/devdiary/internal/model"
)

const defaultBackupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

type backupListResponse struct {
	Status  backup.Status  `json:"status"`
	Backups []model.Backup `json:"backups"`
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultBackupListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	backups, err := h.manager.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backupListResponse{Status: h.manager.Status(), Backups: backups})
}

type backupRequest struct {
	Passphrase string `json:"passphrase"`
}

// Run takes a backup immediately. The body is optional; without a
// passphrase the configured one is used.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if sess, ok := auth.FromContext(r.Context()); ok {
		h.logger.Info("backup requested", "token_id", sess.TokenID, "token_expires", sess.ExpiresAt)
	} else {
		h.logger.Info("backup requested")
	}

	b, err := h.manager.RunNow(r.Context(), req.Passphrase)
	switch {
	case errors.Is(err, backup.ErrNotConfigured), errors.Is(err, backup.ErrNoPassphrase), errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
