package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sv4u/mtag/tagger"
	"github.com/sv4u/mtag/tagger/scanner"
	"github.com/sv4u/mtag/tagger/session"
)

type dirRequest struct {
	Dir string `json:"dir"`
}

type filesResponse struct {
	Dir   string          `json:"dir"`
	Files []scanner.Entry `json:"files"`
}

// DirGet handles GET /api/dir.
func (h *Handlers) DirGet(w http.ResponseWriter, r *http.Request) {
	dir, _ := h.service.Files()
	writeJSON(w, http.StatusOK, dirRequest{Dir: dir})
}

// DirPut handles PUT /api/dir: scan a directory and start a new session.
func (h *Handlers) DirPut(w http.ResponseWriter, r *http.Request) {
	var req dirRequest
	if err := decodeBody(w, r, &req); err != nil || req.Dir == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"dir\": \"...\"}")
		return
	}
	if _, err := h.service.SetDirectory(req.Dir); err != nil {
		h.writeServiceError(w, "scan", err)
		return
	}
	dir, entries := h.service.Files()
	writeJSON(w, http.StatusOK, filesResponse{Dir: dir, Files: entries})
}

// Files handles GET /api/files.
func (h *Handlers) Files(w http.ResponseWriter, r *http.Request) {
	dir, entries := h.service.Files()
	if entries == nil {
		entries = []scanner.Entry{}
	}
	writeJSON(w, http.StatusOK, filesResponse{Dir: dir, Files: entries})
}

type openRequest struct {
	Index *int   `json:"index,omitempty"`
	Path  string `json:"path,omitempty"`
}

type moveRequest struct {
	Delta int `json:"delta"`
}

// SessionOpen handles POST /api/session/open.
func (h *Handlers) SessionOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(w, r, &req); err != nil || (req.Path == "") == (req.Index == nil) {
		writeError(w, http.StatusBadRequest, "body must be {\"path\": p} or {\"index\": n}")
		return
	}
	if req.Path != "" {
		h.writeState(w, "open")(h.service.OpenPath(req.Path))
		return
	}
	h.writeState(w, "open")(h.service.OpenFile(*req.Index))
}

// SessionMove handles POST /api/session/move.
func (h *Handlers) SessionMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"delta\": n}")
		return
	}
	h.writeState(w, "move")(h.service.Move(req.Delta))
}

// SessionGet handles GET /api/session.
func (h *Handlers) SessionGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.State())
}

// SessionCover handles GET /api/session/cover: the pending cover image.
func (h *Handlers) SessionCover(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.Cover()
	if err != nil {
		h.writeServiceError(w, "cover", err)
		return
	}
	if len(img) == 0 {
		writeError(w, http.StatusNotFound, "no cover")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

// SessionEdit handles PUT /api/session/edit.
func (h *Handlers) SessionEdit(w http.ResponseWriter, r *http.Request) {
	var req tagger.EditRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid edit: "+err.Error())
		return
	}
	h.writeState(w, "edit")(h.service.Edit(req))
}

type candidatesResponse struct {
	Query string      `json:"query"`
	Songs interface{} `json:"songs"`
}

// SessionCandidates handles GET /api/session/candidates.
func (h *Handlers) SessionCandidates(w http.ResponseWriter, r *http.Request) {
	query, songs, err := h.service.Candidates(r.Context())
	if err != nil {
		h.writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Query: query, Songs: songs})
}

type selectRequest struct {
	ID int64 `json:"id"`
}

// SessionSelect handles POST /api/session/select.
func (h *Handlers) SessionSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil || req.ID == 0 {
		writeError(w, http.StatusBadRequest, "body must be {\"id\": songId}")
		return
	}
	h.writeState(w, "select")(h.service.Select(r.Context(), req.ID))
}

// SessionSave handles POST /api/session/save: save and advance.
func (h *Handlers) SessionSave(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, "save")(h.service.SaveAndNext())
}

// Lyrics handles GET /api/lyrics/{id}.
func (h *Handlers) Lyrics(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}
	result, err := h.service.LyricText(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "lyrics", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History handles GET /api/history[?path=...&limit=n].
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	edits, err := h.service.History(r.URL.Query().Get("path"), limit)
	if err != nil {
		h.writeServiceError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"edits": edits})
}

// writeState returns a writer for (State, error) results. Out-of-range moves
// still report the state so the page can show that the list has ended.
func (h *Handlers) writeState(w http.ResponseWriter, operation string) func(tagger.State, error) {
	return func(state tagger.State, err error) {
		if err != nil {
			if errors.Is(err, session.ErrOutOfRange) {
				writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error(), "state": state})
				return
			}
			h.writeServiceError(w, operation, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}
