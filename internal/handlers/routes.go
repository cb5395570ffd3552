package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router registers every route. metricsEnabled adds /metrics.
func (h *Handlers) Router(metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/previews/run", h.StartRun).Methods(http.MethodPost)
	api.HandleFunc("/previews/cancel", h.CancelRun).Methods(http.MethodPost)
	api.HandleFunc("/previews/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/previews/runs", h.ListRuns).Methods(http.MethodGet)
	api.HandleFunc("/assets", h.ListAssets).Methods(http.MethodGet)

	return r
}
