package handlers

import (
	"net/http"
	"time"

	"github.com/sv4u/mtag/tagger/netease"
)

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	dir, entries := h.service.Files()
	state := h.service.State()

	response := map[string]interface{}{
		"status":         "healthy",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().Unix(),
		"dir":            dir,
		"files":          len(entries),
		"session_open":   state.Open,
		"event_clients":  h.events.ClientCount(),
	}
	if h.configHash != "" {
		response["config_hash"] = h.configHash
	}
	if h.cacheStats != nil {
		response["catalog_cache"] = h.cacheStats()
	}
	if h.breaker != nil {
		br := h.breaker()
		response["catalog_breaker"] = br
		if br.State != string(netease.BreakerClosed) {
			response["status"] = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// CatalogReset handles POST /api/catalog/reset: close the catalog circuit
// breaker and drop cached responses.
func (h *Handlers) CatalogReset(w http.ResponseWriter, r *http.Request) {
	h.reset()
	resp := map[string]interface{}{"status": "reset"}
	if h.breaker != nil {
		resp["catalog_breaker"] = h.breaker()
	}
	writeJSON(w, http.StatusOK, resp)
}
