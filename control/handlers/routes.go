package handlers

import "github.com/gorilla/mux"

// Register mounts the review page and the JSON API on router.
func (h *Handlers) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health).Methods("GET")

	api.HandleFunc("/dir", h.DirGet).Methods("GET")
	api.HandleFunc("/dir", h.DirPut).Methods("PUT")
	api.HandleFunc("/files", h.Files).Methods("GET")

	api.HandleFunc("/session", h.SessionGet).Methods("GET")
	api.HandleFunc("/session/open", h.SessionOpen).Methods("POST")
	api.HandleFunc("/session/move", h.SessionMove).Methods("POST")
	api.HandleFunc("/session/cover", h.SessionCover).Methods("GET")
	api.HandleFunc("/session/edit", h.SessionEdit).Methods("PUT")
	api.HandleFunc("/session/candidates", h.SessionCandidates).Methods("GET")
	api.HandleFunc("/session/select", h.SessionSelect).Methods("POST")
	api.HandleFunc("/session/save", h.SessionSave).Methods("POST")

	api.HandleFunc("/lyrics/{id:[0-9]+}", h.Lyrics).Methods("GET")
	api.HandleFunc("/history", h.History).Methods("GET")
	api.HandleFunc("/logs", h.Logs).Methods("GET")
	if h.reset != nil {
		api.HandleFunc("/catalog/reset", h.CatalogReset).Methods("POST")
	}

	api.HandleFunc("/docs", h.DocsUI).Methods("GET")
	api.HandleFunc("/docs/openapi.json", h.DocsSpec).Methods("GET")
	api.Handle("/events", h.events).Methods("GET")

	router.HandleFunc("/", h.Review).Methods("GET")
}
