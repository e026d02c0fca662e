package handler

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/devdiary/internal/markdown"
	"github.com/dukerupert/devdiary/internal/model"
	"github.com/dukerupert/devdiary/internal/store"
)

const recentEntryCount = 5

// PageData is passed to every page template.
type PageData struct {
	Title       string
	Nav         string
	ContentHTML template.HTML
	Data        any
}

type TemplateHandler struct {
	entries    *store.EntryStore
	tags       *store.TagStore
	categories *store.CategoryStore
	stats      *store.StatsStore
	markdown   *markdown.Renderer
	templates  *template.Template
	logger     *slog.Logger
	now        func() time.Time
	loc        *time.Location
}

func NewTemplateHandler(
	templates fs.FS,
	es *store.EntryStore,
	ts *store.TagStore,
	cs *store.CategoryStore,
	ss *store.StatsStore,
	md *markdown.Renderer,
	logger *slog.Logger,
) (*TemplateHandler, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateHandler{
		entries:    es,
		tags:       ts,
		categories: cs,
		stats:      ss,
		markdown:   md,
		templates:  tmpl,
		logger:     logger,
		now:        time.Now,
		loc:        time.Local,
	}, nil
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"hasTag": func(e *model.Entry, id int64) bool {
		if e == nil {
			return false
		}
		for _, t := range e.Tags {
			if t.ID == id {
				return true
			}
		}
		return false
	},
	"isCategory": func(e *model.Entry, id int64) bool {
		return e != nil && e.CategoryID != nil && *e.CategoryID == id
	},
}

type dashboardData struct {
	Stats  *model.Stats
	Recent []model.Entry
	Pinned []model.Entry
}

func (h *TemplateHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.notFound(w)
		return
	}

	stats, err := h.stats.Get(r.Context())
	if err != nil {
		h.serverError(w, "load stats", err)
		return
	}
	entries, err := h.entries.List(r.Context(), model.EntryFilter{})
	if err != nil {
		h.serverError(w, "load entries", err)
		return
	}

	data := dashboardData{Stats: stats}
	for _, e := range entries {
		if e.IsPinned {
			data.Pinned = append(data.Pinned, e)
		} else if len(data.Recent) < recentEntryCount {
			data.Recent = append(data.Recent, e)
		}
	}
	h.renderPage(w, http.StatusOK, "dashboard", PageData{Title: "Dev Diary", Nav: "dashboard", Data: data})
}

type entryListData struct {
	Entries    []model.Entry
	Tags       []model.Tag
	Categories []model.Category
	Filter     map[string]string
}

func (h *TemplateHandler) Entries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseEntryFilter(q, h.loc)
	if err != nil {
		h.renderPage(w, http.StatusBadRequest, "error", PageData{Title: "Bad request", Data: err.Error()})
		return
	}

	entries, err := h.entries.List(r.Context(), filter)
	if err != nil {
		h.serverError(w, "list entries", err)
		return
	}
	tags, categories, err := h.labels(r.Context())
	if err != nil {
		h.serverError(w, "load labels", err)
		return
	}

	data := entryListData{
		Entries:    entries,
		Tags:       tags,
		Categories: categories,
		Filter:     map[string]string{},
	}
	for _, key := range []string{"search", "categoryId", "tagId", "startDate", "endDate", "pinnedOnly", "favoriteOnly"} {
		data.Filter[key] = q.Get(key)
	}
	h.renderPage(w, http.StatusOK, "entries", PageData{Title: "Entries", Nav: "entries", Data: data})
}

type entryDetailData struct {
	Entry *model.Entry
	HTML  template.HTML
}

func (h *TemplateHandler) EntryDetail(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	html, err := h.markdown.Render(entry.Content)
	if err != nil {
		h.serverError(w, "render markdown", err)
		return
	}
	h.renderPage(w, http.StatusOK, "entry", PageData{Title: entry.Title, Nav: "entries", Data: entryDetailData{Entry: entry, HTML: html}})
}

type entryFormData struct {
	Entry      *model.Entry
	Tags       []model.Tag
	Categories []model.Category
}

func (h *TemplateHandler) EntryNew(w http.ResponseWriter, r *http.Request) {
	h.entryForm(w, r, nil, "New entry")
}

func (h *TemplateHandler) EntryEdit(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	h.entryForm(w, r, entry, "Edit: "+entry.Title)
}

func (h *TemplateHandler) entryForm(w http.ResponseWriter, r *http.Request, entry *model.Entry, title string) {
	tags, categories, err := h.labels(r.Context())
	if err != nil {
		h.serverError(w, "load labels", err)
		return
	}
	h.renderPage(w, http.StatusOK, "entry_form", PageData{
		Title: title,
		Nav:   "new",
		Data:  entryFormData{Entry: entry, Tags: tags, Categories: categories},
	})
}

type calendarData struct {
	Calendar CalendarMonth
	Date     string
	Entries  []model.Entry
}

func (h *TemplateHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	monthStart, err := parseMonth(r.URL.Query().Get("month"), now, h.loc)
	if err != nil {
		h.renderPage(w, http.StatusBadRequest, "error", PageData{Title: "Bad request", Data: err.Error()})
		return
	}

	counts, err := h.entries.CountByDay(r.Context(), monthStart.AddDate(0, 0, -7), monthStart.AddDate(0, 1, 7), h.loc)
	if err != nil {
		h.serverError(w, "count entries by day", err)
		return
	}

	data := calendarData{Date: r.URL.Query().Get("date")}
	if data.Date != "" {
		day, err := time.ParseInLocation(dateOnly, data.Date, h.loc)
		if err != nil {
			h.renderPage(w, http.StatusBadRequest, "error", PageData{Title: "Bad request", Data: "date must be YYYY-MM-DD"})
			return
		}
		end := day.AddDate(0, 0, 1).Add(-time.Microsecond)
		data.Entries, err = h.entries.List(r.Context(), model.EntryFilter{StartDate: &day, EndDate: &end})
		if err != nil {
			h.serverError(w, "list day entries", err)
			return
		}
	}
	data.Calendar = buildCalendarMonth(monthStart, now, counts, data.Date)

	h.renderPage(w, http.StatusOK, "calendar", PageData{Title: data.Calendar.Label, Nav: "calendar", Data: data})
}

func (h *TemplateHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.serverError(w, "list tags", err)
		return
	}
	h.renderPage(w, http.StatusOK, "labels", PageData{Title: "Tags", Nav: "tags", Data: labelPageData(tags, "tag", "/api/tags", DefaultTagColor)})
}

func (h *TemplateHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.serverError(w, "list categories", err)
		return
	}
	items := make([]model.Tag, len(categories))
	for i, c := range categories {
		items[i] = model.Tag(c)
	}
	h.renderPage(w, http.StatusOK, "labels", PageData{Title: "Categories", Nav: "categories", Data: labelPageData(items, "category", "/api/categories", DefaultCategoryColor)})
}

func labelPageData(items []model.Tag, kind, endpoint, color string) map[string]any {
	return map[string]any{"Items": items, "Kind": kind, "Endpoint": endpoint, "DefaultColor": color}
}

func (h *TemplateHandler) loadEntry(w http.ResponseWriter, r *http.Request) (*model.Entry, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		h.notFound(w)
		return nil, false
	}
	entry, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		h.serverError(w, "get entry", err)
		return nil, false
	}
	if entry == nil {
		h.notFound(w)
		return nil, false
	}
	return entry, true
}

func (h *TemplateHandler) labels(ctx context.Context) ([]model.Tag, []model.Category, error) {
	tags, err := h.tags.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	categories, err := h.categories.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tags, categories, nil
}

func (h *TemplateHandler) notFound(w http.ResponseWriter) {
	h.renderPage(w, http.StatusNotFound, "error", PageData{Title: "Not found", Data: "That page or entry does not exist."})
}

func (h *TemplateHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("page: "+op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// renderPage executes the named content template, then wraps it in the base
// layout.
func (h *TemplateHandler) renderPage(w http.ResponseWriter, status int, name string, data PageData) {
	var content bytes.Buffer
	if err := h.templates.ExecuteTemplate(&content, name, data); err != nil {
		h.serverError(w, "render "+name, err)
		return
	}
	data.ContentHTML = template.HTML(content.String())

	var page bytes.Buffer
	if err := h.templates.ExecuteTemplate(&page, "base", data); err != nil {
		h.serverError(w, "render base", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.WriteTo(w)
}
