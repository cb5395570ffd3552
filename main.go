package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/database"
	"preview-fetcher/internal/handlers"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/memory"
	"preview-fetcher/internal/metrics"
	"preview-fetcher/internal/middleware"
	"preview-fetcher/internal/startup"
)

const (
	// statsInterval is how often cached preview counts are exported.
	statsInterval = time.Minute
	// dbMetricsInterval is how often database size metrics are refreshed.
	dbMetricsInterval = 30 * time.Second
	// shutdownTimeout bounds the graceful shutdown, including cancelling an
	// active run.
	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.Register()
	metrics.InitializeMetrics()

	ctx := context.Background()
	comps, err := startup.BuildComponents(ctx, config)
	if err != nil {
		startup.LogFatal("Initialization failed: %v", err)
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logging.Warn("Close error: %v", err)
		}
	}()

	// Prime the stats once so the first scrape is meaningful
	if found, err := comps.Assets.Assets(ctx); err != nil {
		logging.Warn("Initial asset scan failed: %v", err)
	} else if err := comps.DB.RefreshStats(ctx, len(found)); err != nil {
		logging.Warn("Initial stats refresh failed: %v", err)
	}

	collector := metrics.NewCollector(comps.DB, statsInterval)
	collector.Start()

	stopDBMetrics := make(chan struct{})
	go updateDBMetrics(comps.DB, stopDBMetrics)

	h := handlers.New(handlers.Options{
		Runner:        comps.Runner,
		History:       comps.DB,
		Assets:        comps.Assets,
		Index:         comps.Store,
		Defaults:      config.Run,
		OnRunFinished: refreshStatsAfterRun(comps),
	})

	router := h.Router(config.MetricsEnabled)
	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		handleShutdown(srv, h, collector, stopDBMetrics)
		close(shutdownDone)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// refreshStatsAfterRun recounts previews against the asset catalog cached by
// the run that just finished.
func refreshStatsAfterRun(comps *startup.Components) func(batch.RunReport) {
	return func(report batch.RunReport) {
		logging.Info("%s", report.Summary())

		total := report.Total
		if cached, scanned := comps.Assets.Cached(); !scanned.IsZero() {
			total = len(cached)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := comps.DB.RefreshStats(ctx, total); err != nil {
			logging.Warn("Stats refresh failed: %v", err)
		}
	}
}

func updateDBMetrics(db *database.Database, stop <-chan struct{}) {
	ticker := time.NewTicker(dbMetricsInterval)
	defer ticker.Stop()

	db.UpdateDBMetrics()
	for {
		select {
		case <-ticker.C:
			db.UpdateDBMetrics()
		case <-stop:
			return
		}
	}
}

func handleShutdown(srv *http.Server, h *handlers.Handlers, collector *metrics.Collector, stopDBMetrics chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cancelling active preview run")
	if err := h.Shutdown(ctx); err != nil {
		logging.Warn("Preview run did not stop in time: %v", err)
	} else {
		startup.LogShutdownStepComplete("No run active")
	}

	startup.LogShutdownStep("Stopping metrics")
	collector.Stop()
	close(stopDBMetrics)
	startup.LogShutdownStepComplete("Metrics stopped")

	startup.LogShutdownComplete()
}
