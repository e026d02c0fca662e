package server

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/devdiary/internal/auth"
	"github.com/dukerupert/devdiary/internal/backup"
	"github.com/dukerupert/devdiary/internal/config"
	"github.com/dukerupert/devdiary/internal/handler"
	"github.com/dukerupert/devdiary/internal/markdown"
	"github.com/dukerupert/devdiary/internal/middleware"
	"github.com/dukerupert/devdiary/internal/store"
	"github.com/dukerupert/devdiary/internal/upload"
	ws "github.com/dukerupert/devdiary/internal/websocket"
	"github.com/dukerupert/devdiary/web"
)

const (
	loginAttempts      = 10
	loginWindow        = time.Minute
	rateLimitSweep     = 5 * time.Minute
	backupObjectPrefix = "devdiary"
	uploadObjectPrefix = "uploads"
)

type Server struct {
	cfg           *config.Config
	db            *sql.DB
	hub           *ws.Hub
	gate          *auth.Gate
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	static        fs.FS
	logger        *slog.Logger

	entryH    *handler.EntryHandler
	tagH      *handler.TagHandler
	categoryH *handler.CategoryHandler
	statsH    *handler.StatsHandler
	exportH   *handler.ExportHandler
	uploadH   *handler.UploadHandler
	authH     *handler.AuthHandler
	backupH   *handler.BackupHandler
	pages     *handler.TemplateHandler
}

func New(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	gate, err := auth.NewGate(auth.Config{
		Password:     cfg.Auth.Password,
		PasswordHash: cfg.Auth.PasswordHash,
		TokenSecret:  cfg.Auth.TokenSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
		EnforceAPI:   cfg.Auth.EnforceAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("auth gate: %w", err)
	}

	entryStore := store.NewEntryStore(db)
	tagStore := store.NewTagStore(db)
	categoryStore := store.NewCategoryStore(db)
	statsStore := store.NewStatsStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(BackupConfig(cfg.Backup), db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: ws.EntityBackup,
			Action: ws.Action(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	pages, err := handler.NewTemplateHandler(web.FS, entryStore, tagStore, categoryStore, statsStore, markdown.New(), logger.With("component", "template"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	return &Server{
		cfg:           cfg,
		db:            db,
		hub:           hub,
		gate:          gate,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		static:        static,
		logger:        logger,

		entryH:    handler.NewEntryHandler(entryStore, hub, logger.With("component", "entry")),
		tagH:      handler.NewTagHandler(tagStore, hub, logger.With("component", "tag")),
		categoryH: handler.NewCategoryHandler(categoryStore, hub, logger.With("component", "category")),
		statsH:    handler.NewStatsHandler(statsStore, logger.With("component", "stats")),
		exportH:   handler.NewExportHandler(entryStore, logger.With("component", "export")),
		uploadH:   handler.NewUploadHandler(uploadStore(cfg.Upload), logger.With("component", "upload")),
		authH:     handler.NewAuthHandler(gate, logger.With("component", "auth")),
		backupH:   handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		pages:     pages,
	}, nil
}

// BackupConfig converts loaded settings into backup manager settings.
func BackupConfig(c config.BackupConfig) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.S3.Endpoint,
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		},
		Passphrase:    c.Passphrase,
		Interval:      c.Interval,
		RetentionDays: c.RetentionDays,
		Prefix:        backupObjectPrefix,
	}
}

func uploadStore(c config.UploadConfig) upload.Store {
	if c.S3.Enabled() {
		return upload.NewS3Store(upload.S3Config{
			Endpoint:  c.S3.Endpoint,
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			PublicURL: c.S3.PublicURL,
			Prefix:    uploadObjectPrefix,
		})
	}
	return upload.NewLocalStore(c.Dir, c.URLPrefix)
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Start launches background work: scheduled backups and rate limiter
// cleanup. Both stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	s.backupManager.Start(ctx)
	go s.rateLimiter.RunCleanup(ctx, rateLimitSweep)
}

// Stop waits for the backup loop to exit.
func (s *Server) Stop() {
	s.backupManager.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Open routes
	mux.HandleFunc("GET /health", handler.Health(s.db))
	mux.HandleFunc("GET /api/auth/status", s.authH.Status)
	mux.Handle("POST /api/auth/login", s.rateLimited(http.HandlerFunc(s.authH.Login)))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	if prefix := strings.TrimSuffix(s.cfg.Upload.URLPrefix, "/") + "/"; !s.cfg.Upload.S3.Enabled() && prefix != "/" {
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.Upload.Dir))))
	}

	// API routes, token-checked when enforcement is on
	s.registerAPIRoutes(mux)

	// Pages; the password overlay is enforced client-side
	mux.HandleFunc("GET /", s.pages.Dashboard)
	mux.HandleFunc("GET /entries", s.pages.Entries)
	mux.HandleFunc("GET /entries/new", s.pages.EntryNew)
	mux.HandleFunc("GET /entries/{id}", s.pages.EntryDetail)
	mux.HandleFunc("GET /entries/{id}/edit", s.pages.EntryEdit)
	mux.HandleFunc("GET /calendar", s.pages.Calendar)
	mux.HandleFunc("GET /tags", s.pages.Tags)
	mux.HandleFunc("GET /categories", s.pages.Categories)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) rateLimited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginAttempts, loginWindow)(h)
}

func (s *Server) registerAPIRoutes(outer *http.ServeMux) {
	mux := protectedMux{outer: outer, wrap: middleware.RequireToken(s.gate)}

	mux.HandleFunc("GET /api/entries", s.entryH.List)
	mux.HandleFunc("POST /api/entries", s.entryH.Create)
	mux.HandleFunc("GET /api/entries/{id}", s.entryH.Get)
	mux.HandleFunc("PUT /api/entries/{id}", s.entryH.Update)
	mux.HandleFunc("DELETE /api/entries/{id}", s.entryH.Delete)

	mux.HandleFunc("GET /api/tags", s.tagH.List)
	mux.HandleFunc("POST /api/tags", s.tagH.Create)
	mux.HandleFunc("DELETE /api/tags", s.tagH.Delete)
	mux.HandleFunc("DELETE /api/tags/{id}", s.tagH.Delete)

	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("POST /api/categories", s.categoryH.Create)
	mux.HandleFunc("DELETE /api/categories", s.categoryH.Delete)
	mux.HandleFunc("DELETE /api/categories/{id}", s.categoryH.Delete)

	mux.HandleFunc("GET /api/stats", s.statsH.Get)
	mux.HandleFunc("GET /api/export", s.exportH.Export)
	mux.HandleFunc("POST /api/upload", s.uploadH.Upload)

	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

// protectedMux registers every route behind the same middleware.
type protectedMux struct {
	outer *http.ServeMux
	wrap  func(http.Handler) http.Handler
}

func (m protectedMux) HandleFunc(pattern string, h http.HandlerFunc) {
	m.outer.Handle(pattern, m.wrap(h))
}
