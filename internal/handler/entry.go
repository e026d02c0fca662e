package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
	"github.com/dukerupert/devdiary/internal/store"
	"github.com/dukerupert/devdiary/internal/websocket"
)

type EntryHandler struct {
	entries *store.EntryStore
	hub     *websocket.Hub
	logger  *slog.Logger
	loc     *time.Location
}

func NewEntryHandler(es *store.EntryStore, hub *websocket.Hub, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{entries: es, hub: hub, logger: logger, loc: time.Local}
}

func (h *EntryHandler) notify(action websocket.Action, id int64) {
	if h.hub != nil {
		h.hub.Notify(websocket.EntityEntry, action, id)
	}
}

type entryRequest struct {
	Title      *string    `json:"title"`
	Content    *string    `json:"content"`
	CategoryID optionalID `json:"category_id"`
	IsPinned   *bool      `json:"is_pinned"`
	IsFavorite *bool      `json:"is_favorite"`
	TagIDs     *[]int64   `json:"tagIds"`
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r.URL.Query(), h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.entries.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := model.NewEntry{CategoryID: req.CategoryID.Value}
	if req.Title != nil {
		in.Title = strings.TrimSpace(*req.Title)
	}
	if in.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.IsPinned != nil {
		in.IsPinned = *req.IsPinned
	}
	if req.IsFavorite != nil {
		in.IsFavorite = *req.IsFavorite
	}
	if req.TagIDs != nil {
		in.TagIDs = *req.TagIDs
	}

	id, err := h.entries.Create(r.Context(), in)
	if errors.Is(err, store.ErrInvalidReference) {
		writeError(w, http.StatusBadRequest, "unknown category or tag")
		return
	}
	if err != nil {
		h.logger.Error("create entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}

	h.logger.Info("entry created", "id", id)
	h.notify(websocket.ActionCreated, id)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	patch := model.EntryPatch{
		Content:     req.Content,
		SetCategory: req.CategoryID.Set,
		CategoryID:  req.CategoryID.Value,
		IsPinned:    req.IsPinned,
		IsFavorite:  req.IsFavorite,
		TagIDs:      req.TagIDs,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		patch.Title = &title
	}

	found, err := h.entries.Update(r.Context(), id, patch)
	if errors.Is(err, store.ErrInvalidReference) {
		writeError(w, http.StatusBadRequest, "unknown category or tag")
		return
	}
	if err != nil {
		h.logger.Error("update entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	h.notify(websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	found, err := h.entries.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("delete entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	h.logger.Info("entry deleted", "id", id)
	h.notify(websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
