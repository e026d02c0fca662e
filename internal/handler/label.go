package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/devdiary/internal/model"
	"github.com/dukerupert/devdiary/internal/store"
	"github.com/dukerupert/devdiary/internal/websocket"
)

const (
	DefaultTagColor      = "#8b5cf6"
	DefaultCategoryColor = "#6366f1"
)

// labelStore is the shape shared by the tag and category stores.
type labelStore[T any] interface {
	Create(ctx context.Context, name, color string) (int64, error)
	NameExists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// LabelHandler serves list/create/delete for tags or categories.
type LabelHandler[T any] struct {
	store        labelStore[T]
	kind         string
	plural       string
	defaultColor string
	entity       websocket.Entity
	hub          *websocket.Hub
	logger       *slog.Logger
}

type TagHandler = LabelHandler[model.Tag]

type CategoryHandler = LabelHandler[model.Category]

func NewTagHandler(ts *store.TagStore, hub *websocket.Hub, logger *slog.Logger) *TagHandler {
	return &TagHandler{store: ts, kind: "tag", plural: "tags", defaultColor: DefaultTagColor, entity: websocket.EntityTag, hub: hub, logger: logger}
}

func NewCategoryHandler(cs *store.CategoryStore, hub *websocket.Hub, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{store: cs, kind: "category", plural: "categories", defaultColor: DefaultCategoryColor, entity: websocket.EntityCategory, hub: hub, logger: logger}
}

func (h *LabelHandler[T]) notify(action websocket.Action, id int64) {
	if h.hub != nil {
		h.hub.Notify(h.entity, action, id)
	}
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *LabelHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list "+h.kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list "+h.plural)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *LabelHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = h.defaultColor
	}
	if !hexColorRegexp.MatchString(color) {
		writeError(w, http.StatusBadRequest, "color must be a hex value like #3b82f6")
		return
	}

	exists, err := h.store.NameExists(r.Context(), name)
	if err != nil {
		h.logger.Error("check "+h.kind+" name", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create "+h.kind)
		return
	}
	duplicate := fmt.Sprintf("a %s named %q already exists", h.kind, name)
	if exists {
		writeError(w, http.StatusBadRequest, duplicate)
		return
	}

	id, err := h.store.Create(r.Context(), name, color)
	if errors.Is(err, store.ErrDuplicateName) {
		writeError(w, http.StatusBadRequest, duplicate)
		return
	}
	if err != nil {
		h.logger.Error("create "+h.kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create "+h.kind)
		return
	}

	h.notify(websocket.ActionCreated, id)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *LabelHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathOrQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get "+h.kind, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete "+h.kind)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, h.kind+" not found")
		return
	}

	found, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("delete "+h.kind, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete "+h.kind)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, h.kind+" not found")
		return
	}

	h.logger.Info("deleted "+h.kind, "id", id, h.kind, *item)
	h.notify(websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
