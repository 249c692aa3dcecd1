package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/sv4u/mtag/control/handlers"
	"github.com/sv4u/mtag/tagger"
	"github.com/sv4u/mtag/tagger/config"
	"github.com/sv4u/mtag/tagger/history"
	"github.com/sv4u/mtag/tagger/logging"
	"github.com/sv4u/mtag/tagger/netease"
	"github.com/sv4u/mtag/tagger/scanner"
)

// ServerConfig holds configuration for the review server.
type ServerConfig struct {
	Config  *config.MtagConfig
	Dir     string // overrides Config.MusicDir and the last used directory
	Version string
	// LogOutput mirrors the JSON log; nil means stdout.
	LogOutput io.Writer
}

// Server represents the review HTTP server.
type Server struct {
	config      *ServerConfig
	httpServer  *http.Server
	router      *mux.Router
	handlers    *handlers.Handlers
	service     *tagger.Service
	catalog     *netease.Client
	history     *history.Store
	logger      *logging.Logger
	cancelWatch context.CancelFunc
	startTime   time.Time
}

// NewServer wires the catalog client, edit history and tagging service behind
// the HTTP routes.
func NewServer(cfg *ServerConfig) (*Server, error) {
	mc := cfg.Config
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	mirror := cfg.LogOutput
	if mirror == nil {
		mirror = os.Stdout
	}

	logger, err := logging.NewLogger(mc.LogPath(), "mtag", mirror)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	catalog := netease.NewClient(catalogConfig(&mc.Catalog))

	s := &Server{
		config:    cfg,
		router:    mux.NewRouter(),
		catalog:   catalog,
		logger:    logger,
		startTime: time.Now(),
	}

	// A nil *history.Store must not reach the EditLog interface.
	var editLog tagger.EditLog
	if store, err := history.Open(mc.HistoryPath()); err != nil {
		logger.Warn("history", "edit history disabled", err)
	} else {
		s.history = store
		editLog = store
	}

	conv := scanner.NewConverter(*mc.Scanner.ConvertTraditional)
	s.service = tagger.NewService(mc, logger, catalog, conv, editLog)

	events := handlers.NewEventBroadcaster()
	s.handlers = handlers.NewHandlers(s.service, handlers.Options{
		Events:       events,
		ConfigHash:   mc.Hash,
		Version:      version,
		StartTime:    s.startTime,
		CacheStats:   catalog.CacheStats,
		Breaker:      catalog.BreakerStatus,
		ResetCatalog: catalog.Reset,
		LogPath:      mc.LogPath(),
	})
	s.handlers.Register(s.router)

	if dir := s.initialDir(); dir != "" {
		if _, err := s.service.SetDirectory(dir); err != nil {
			logger.Warn("serve", "could not open "+dir, err)
		}
	}

	if *mc.Scanner.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelWatch = cancel
		if err := s.service.Watch(ctx, events.Publish); err != nil {
			logger.Warn("watch", "directory watching disabled", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", mc.Server.Port),
		Handler:      recoveryMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) initialDir() string {
	if s.config.Dir != "" {
		return s.config.Dir
	}
	if s.config.Config.MusicDir != "" {
		return s.config.Config.MusicDir
	}
	return s.config.Config.LastDir()
}

// Handler returns the root handler, recovery middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Infof("serve", "review server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, then releases the open file, the edit
// history and the log file.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	err := s.httpServer.Shutdown(ctx)

	if cerr := s.service.Close(); cerr != nil {
		log.Printf("Error closing open file: %v", cerr)
	}
	s.catalog.Close()
	if s.history != nil {
		if cerr := s.history.Close(); cerr != nil {
			log.Printf("Error closing edit history: %v", cerr)
		}
	}
	s.logger.Close()
	return err
}

func catalogConfig(c *config.CatalogSettings) netease.Config {
	return netease.Config{
		BaseURL:              c.BaseURL,
		Timeout:              c.TimeoutDuration(),
		SearchLimit:          c.SearchLimit,
		CacheMaxSize:         c.CacheMaxSize,
		CacheTTL:             c.CacheTTLDuration(),
		CacheCleanupInterval: time.Minute,
		RateLimitEnabled:     *c.RateLimitEnabled,
		RateLimitRequests:    c.RateLimitRequests,
		RateLimitWindow:      c.RateLimitWindow,
	}
}

// recoveryMiddleware wraps an http.Handler to recover from panics and return a proper error response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				response := map[string]interface{}{
					"error":   "Internal server error",
					"message": "A panic occurred while processing the request",
				}
				if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}
