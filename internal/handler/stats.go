package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/devdiary/internal/store"
)

type StatsHandler struct {
	stats  *store.StatsStore
	logger *slog.Logger
}

func NewStatsHandler(ss *store.StatsStore, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: ss, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Get(r.Context())
	if err != nil {
		h.logger.Error("compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
