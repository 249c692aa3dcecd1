// Package handlers implements the review page and JSON API of mtag serve.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sv4u/mtag/tagger"
	"github.com/sv4u/mtag/tagger/metadata"
	"github.com/sv4u/mtag/tagger/netease"
	"github.com/sv4u/mtag/tagger/scanner"
	"github.com/sv4u/mtag/tagger/session"
)

// Options configures Handlers. Zero values are fine.
type Options struct {
	Events     *EventBroadcaster
	ConfigHash string
	Version    string
	StartTime  time.Time
	CacheStats func() netease.CacheStats
	Breaker    func() netease.BreakerStatus
	// ResetCatalog backs POST /api/catalog/reset; nil disables the route.
	ResetCatalog func()
	// LogPath is the JSON log served by /api/logs.
	LogPath string
}

// Handlers holds all HTTP handlers.
type Handlers struct {
	service    *tagger.Service
	events     *EventBroadcaster
	configHash string
	version    string
	startTime  time.Time
	cacheStats func() netease.CacheStats
	breaker    func() netease.BreakerStatus
	reset      func()
	logPath    string
}

// NewHandlers creates handlers over service.
func NewHandlers(service *tagger.Service, opts Options) *Handlers {
	if opts.Events == nil {
		opts.Events = NewEventBroadcaster()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}
	return &Handlers{
		service:    service,
		events:     opts.Events,
		configHash: opts.ConfigHash,
		version:    opts.Version,
		startTime:  opts.StartTime,
		cacheStats: opts.CacheStats,
		breaker:    opts.Breaker,
		reset:      opts.ResetCatalog,
		logPath:    opts.LogPath,
	}
}

// Events returns the directory-change broadcaster.
func (h *Handlers) Events() *EventBroadcaster {
	return h.events
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: response_encode_failed error=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors to HTTP status codes.
func (h *Handlers) writeServiceError(w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s_failed error=%v", operation, err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var (
		apiErr   *netease.APIError
		scanErr  *scanner.ScanError
		loadErr  *metadata.TagLoadError
		writeErr *metadata.TagWriteError
	)
	switch {
	case errors.Is(err, session.ErrOutOfRange),
		errors.Is(err, netease.ErrNoResults),
		errors.Is(err, scanner.ErrNoFiles),
		errors.As(err, &scanErr):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoFile), errors.Is(err, tagger.ErrNoDirectory), errors.Is(err, tagger.ErrFileChanged):
		return http.StatusConflict
	case errors.Is(err, netease.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &writeErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
