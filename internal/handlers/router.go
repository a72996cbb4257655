package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/snappy-loop/gallery/internal/metrics"
)

// NewRouter registers every route. requireKey guards story creation.
func NewRouter(h *Handler, requireKey func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/media/{id}", h.Media).Methods("GET", "HEAD")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/stories", h.ListStories).Methods("GET")
	api.HandleFunc("/stories/{id}", h.GetStory).Methods("GET")
	api.Handle("/stories", requireKey(http.HandlerFunc(h.CreateStory))).Methods("POST")

	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/actions", h.DispatchAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/narration", h.StartNarration).Methods("POST")
	api.HandleFunc("/sessions/{id}/stories", h.StartStory).Methods("POST")
	api.HandleFunc("/sessions/{id}/ws", h.SessionWS).Methods("GET")

	api.HandleFunc("/audio/wav", h.EncodeWAV).Methods("POST")

	return r
}
