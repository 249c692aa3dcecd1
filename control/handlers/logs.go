package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/sv4u/mtag/tagger/logging"
)

// Logs handles GET /api/logs?level=&q=&since=&limit=, newest first.
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := logging.Query{Search: params.Get("q")}

	if v := params.Get("level"); v != "" {
		level, ok := logging.ParseLevel(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid level")
			return
		}
		q.Level = level
	}
	if v := params.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		q.Since = since
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		q.Limit = n
	}

	entries := []logging.LogEntry{}
	if h.logPath != "" {
		var err error
		if entries, err = logging.ReadEntries(h.logPath, q); err != nil {
			log.Printf("ERROR: logs_read_failed path=%s error=%v", h.logPath, err)
			writeError(w, http.StatusInternalServerError, "failed to read logs")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
}
