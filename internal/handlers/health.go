package handlers

import (
	"net/http"
	"runtime"
	"time"

	"preview-fetcher/internal/startup"
)

const (
	statusHealthy = "healthy"
	statusRunning = "running"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Batch info
	RunActive   bool    `json:"runActive"`
	RunPercent  float64 `json:"runPercent,omitempty"`
	LastRunID   string  `json:"lastRunId,omitempty"`
	LastRunTime string  `json:"lastRunTime,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.progress.Snapshot()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		RunActive:    snap.Running,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if snap.Running {
		response.Status = statusRunning
		response.RunPercent = snap.Percent
	}
	if snap.LastReport != nil {
		response.LastRunID = snap.LastReport.RunID
		response.LastRunTime = snap.LastReport.FinishedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
