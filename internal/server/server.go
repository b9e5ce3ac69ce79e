// Package server exposes classification, the submission log and the admin
// dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/lgpd-sentinel/internal/analysis"
	"github.com/raaihank/lgpd-sentinel/internal/cache"
	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/security"
	"github.com/raaihank/lgpd-sentinel/internal/submissions"
	"github.com/raaihank/lgpd-sentinel/internal/web"
	"github.com/raaihank/lgpd-sentinel/internal/websocket"
	"go.uber.org/zap"
)

// Version is reported by /info and the --version flag
const Version = "0.3.0"

// VerdictCache is the part of the verdict cache the admin routes manage
type VerdictCache interface {
	Stats(ctx context.Context) cache.Stats
	Clear(ctx context.Context) error
}

// Deps are the components the server routes to
type Deps struct {
	Service     *analysis.Service
	Store       *config.SystemStore
	Submissions *submissions.Log
	Catalog     *categories.Catalog
	Cache       VerdictCache // optional
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	deps    Deps
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	admin   *security.AdminAuth
	limiter *security.RateLimiter
	started time.Time
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, log *logger.Logger) (*Server, error) {
	if deps.Service == nil || deps.Store == nil || deps.Submissions == nil || deps.Catalog == nil {
		return nil, errors.New("server: service, store, submissions and catalog are required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	admin := security.NewAdminAuth(cfg.Security.AdminPassword)

	hubCfg := websocket.HubConfigFromConfig(cfg.WebSocket)
	hubCfg.Authorize = admin.FromRequest

	s := &Server{
		config:  cfg,
		deps:    deps,
		logger:  log.WithComponent("server"),
		router:  mux.NewRouter(),
		wsHub:   websocket.NewHub(hubCfg, log),
		admin:   admin,
		started: time.Now(),
	}
	if cfg.Security.RateLimit.Enabled {
		s.limiter = security.NewRateLimiter(cfg.Security)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	// Dashboard page, embedded
	s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet)
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet)

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	// Middleware is applied per route so a known path with the wrong method
	// still reaches the router's 405 handling
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.bodyLimitMiddleware)

	limited := func(h http.HandlerFunc) http.Handler { return s.rateLimitMiddleware(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return s.admin.Middleware(h) }

	api.Handle("/classify", limited(s.handleClassify)).Methods(http.MethodPost)
	api.Handle("/privacy", limited(s.handlePrivacy)).Methods(http.MethodPost)

	api.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/submissions", s.handleListSubmissions).Methods(http.MethodGet)
	api.HandleFunc("/pii-types", s.handlePIITypes).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	api.Handle("/dashboard-data", adminOnly(s.handleDashboardData)).Methods(http.MethodGet)
	api.Handle("/status", adminOnly(s.handleStatus)).Methods(http.MethodGet)
	api.Handle("/config", adminOnly(s.handleGetConfig)).Methods(http.MethodGet)
	api.Handle("/config", adminOnly(s.handleUpdateConfig)).Methods(http.MethodPut, http.MethodPost)
	api.Handle("/submissions", adminOnly(s.handleClearSubmissions)).Methods(http.MethodDelete)

	s.router.Handle("/data/classifications.csv", adminOnly(s.handleDownloadCSV)).Methods(http.MethodGet)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts background routines that live as long as ctx: the websocket
// hub, the rate limiter cleanup and the system config watcher
func (s *Server) Run(ctx context.Context) {
	go s.wsHub.Run(ctx)

	if s.limiter != nil {
		s.limiter.StartCleanupRoutine(ctx, 10*time.Minute)
	}

	go func() {
		err := s.deps.Store.Watch(ctx, func(cfg config.SystemConfig, err error) {
			if err != nil {
				s.logger.Warn("System config changed but is unreadable", zap.Error(err))
				return
			}
			s.logger.Info("System config changed on disk", zap.String("llm_provider", cfg.LLMProvider))
			s.broadcastConfig("file", cfg)
		})
		if err != nil {
			s.logger.Warn("System config watcher stopped", zap.Error(err))
		}
	}()

	s.publishStatus("running")
	go func() {
		<-ctx.Done()
		s.publishStatus("stopping")
	}()
}

// Start serves HTTP until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting LGPD-Sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.String("system_config", s.deps.Store.Path()),
		zap.String("submissions", s.deps.Submissions.Path()),
		zap.Int("pii_types", s.deps.Service.Library().Len()),
		zap.Int("categories", s.deps.Catalog.Len()),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping LGPD-Sentinel server")
	return s.server.Shutdown(ctx)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Service.Snapshot()
	info := map[string]any{
		"name":              "lgpd-sentinel",
		"version":           Version,
		"uptime":            time.Since(s.started).Round(time.Second).String(),
		"pii_types":         s.deps.Service.Library().Len(),
		"enabled_pii_types": snap.EnabledPIITypes,
		"llm_provider":      snap.LLMProvider,
		"categories":        s.deps.Catalog.Len(),
		"rate_limited":      s.limiter != nil,
		"websocket_clients": s.wsHub.ClientCount(),
	}
	writeJSON(w, http.StatusOK, info)
}

// handleStatus reports runtime counters for the admin dashboard. Cache
// stats scan Redis, so they stay behind admin auth.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"websocket": s.wsHub.GetStats(),
	}
	if s.deps.Cache != nil {
		status["cache"] = s.deps.Cache.Stats(r.Context())
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) publishStatus(status string) {
	total := 0
	if entries, err := s.deps.Submissions.List(); err == nil {
		total = len(entries)
	}
	s.wsHub.Publish(websocket.EventTypeSystemStatus, websocket.SystemStatusEvent{
		Status:           status,
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		TotalSubmissions: total,
		ConnectedClients: s.wsHub.ClientCount(),
	})
}

func (s *Server) broadcastConfig(origin string, cfg config.SystemConfig) {
	s.wsHub.Publish(websocket.EventTypeConfigUpdated, websocket.ConfigUpdatedEvent{
		Origin:          origin,
		LLMProvider:     cfg.LLMProvider,
		EnabledPIITypes: cfg.EnabledPIITypes,
	})
}
