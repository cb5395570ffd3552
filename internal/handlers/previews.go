package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"preview-fetcher/internal/batch"
)

// RunRequest is the body of POST /api/previews/run. Every field is optional.
type RunRequest struct {
	Mode   string        `json:"mode"`
	Names  []string      `json:"names"`
	Filter *string       `json:"filter"`
	Config *RunOverrides `json:"config"`
}

// RunOverrides replaces individual fields of the configured run defaults.
type RunOverrides struct {
	BatchSize         *int     `json:"batchSize"`
	MaxConcurrency    *int     `json:"maxConcurrency"`
	MaxRetries        *int     `json:"maxRetries"`
	MetadataTimeout   *string  `json:"metadataTimeout"`
	PreviewTimeout    *string  `json:"previewTimeout"`
	BackoffMultiplier *float64 `json:"backoffMultiplier"`
	SkipVideoPreviews *bool    `json:"skipVideoPreviews"`
}

// apply returns cfg with the overrides applied.
func (o *RunOverrides) apply(cfg batch.RunConfig) (batch.RunConfig, error) {
	if o == nil {
		return cfg, nil
	}
	if o.BatchSize != nil {
		cfg.BatchSize = *o.BatchSize
	}
	if o.MaxConcurrency != nil {
		cfg.MaxConcurrency = *o.MaxConcurrency
	}
	if o.MaxRetries != nil {
		cfg.MaxRetries = *o.MaxRetries
	}
	if o.BackoffMultiplier != nil {
		cfg.BackoffMultiplier = *o.BackoffMultiplier
	}
	if o.SkipVideoPreviews != nil {
		cfg.SkipVideoPreviews = *o.SkipVideoPreviews
	}
	for _, d := range []struct {
		raw *string
		dst *time.Duration
	}{
		{o.MetadataTimeout, &cfg.MetadataTimeout},
		{o.PreviewTimeout, &cfg.PreviewTimeout},
	} {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid duration %q", *d.raw)
		}
		*d.dst = parsed
	}
	return cfg, nil
}

// StartRun validates the request and starts a background run. 409 if a run
// is already active.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mode, err := batch.ParseMode(req.Mode)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := req.Config.apply(h.defaults)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Filter != nil {
		cfg.Filter = *req.Filter
	}
	if err := cfg.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.active.CompareAndSwap(false, true) {
		writeJSONError(w, batch.ErrRunInProgress.Error(), http.StatusConflict)
		return
	}

	h.progress.begin()
	h.runs.Add(1)
	go h.runInBackground(req.Names, mode, cfg)

	log.Info("Started %s run (%d names requested, filter %q)", mode, len(req.Names), cfg.Filter)
	writeJSONStatus(w, http.StatusAccepted, "started")
}

func (h *Handlers) runInBackground(names []string, mode batch.Mode, cfg batch.RunConfig) {
	defer h.runs.Done()
	defer h.active.Store(false)
	defer h.progress.end()

	report, err := h.runner.Run(h.baseCtx, names, mode, cfg, h.progress)
	if err != nil {
		// OnError already recorded run-level failures
		log.Warn("Preview run did not start: %v", err)
		return
	}
	if h.onRunFinished != nil {
		h.onRunFinished(report)
	}
}

// CancelRun asks the active run to stop.
func (h *Handlers) CancelRun(w http.ResponseWriter, _ *http.Request) {
	if !h.active.Load() {
		writeJSONStatus(w, http.StatusOK, "idle")
		return
	}
	h.progress.requestCancel()
	h.runner.Cancel()
	log.Info("Cancellation requested for the active run")
	writeJSONStatus(w, http.StatusAccepted, "cancelling")
}

// GetStatus returns progress of the active run, or the last report.
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, h.progress.Snapshot())
}

// ListRuns returns persisted run reports. ?limit=N bounds the result.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONStatusCode(w, http.StatusOK, []batch.RunReport{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(r.Context(), limit)
	if err != nil {
		log.Error("Failed to list runs: %v", err)
		writeJSONError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, runs)
}

// AssetStatus is one entry of GET /api/assets.
type AssetStatus struct {
	batch.Asset
	Preview string `json:"preview"` // "real", "placeholder" or "missing"
}

// ListAssets rescans the asset root and reports each asset's preview status.
// ?status=missing|real|placeholder filters the result.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	want := r.URL.Query().Get("status")
	switch want {
	case "", "missing", "real", "placeholder":
	default:
		writeJSONError(w, "status must be one of missing, real, placeholder", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	found, err := h.assets.Assets(ctx)
	if err != nil {
		log.Error("Failed to list assets: %v", err)
		writeJSONError(w, "failed to list assets", http.StatusInternalServerError)
		return
	}

	out := make([]AssetStatus, 0, len(found))
	for _, a := range found {
		status, err := h.previewStatus(r, a.Name)
		if err != nil {
			log.Warn("Preview lookup failed for %s: %v", a.Name, err)
		}
		if want != "" && status != want {
			continue
		}
		out = append(out, AssetStatus{Asset: a, Preview: status})
	}
	writeJSONStatusCode(w, http.StatusOK, out)
}

func (h *Handlers) previewStatus(r *http.Request, name string) (string, error) {
	hasReal, err := h.index.HasRealPreview(r.Context(), name)
	if err != nil {
		return "missing", err
	}
	if hasReal {
		return "real", nil
	}
	hasPlaceholder, err := h.index.HasPlaceholderPreview(r.Context(), name)
	if err != nil {
		return "missing", err
	}
	if hasPlaceholder {
		return "placeholder", nil
	}
	return "missing", nil
}
