package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/memory"
	"preview-fetcher/internal/metrics"
	"preview-fetcher/internal/startup"
)

type runOptions struct {
	mode         string
	filter       string
	names        []string
	skipVideos   bool
	batchSize    int
	concurrency  int
	maxRetries   int
	jsonOutput   bool
	failOnErrors bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [asset names...]",
		Short: "Run a preview batch in the foreground",
		Long: `Run selects assets by mode and filter, fetches their metadata and
generates previews. Asset names given as arguments (or with --names) restrict
the run to those assets; without them the whole asset directory is used.

Modes:
	missing   assets with neither a preview nor a placeholder (default)
	existing  assets that already have a preview
	all       every asset

Ctrl+C cancels the run. Items in flight finish or stop at their next check
and the partial report is still saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts, append(opts.names, args...))
		},
	}

	bindRunFlags(cmd, opts)
	return cmd
}

func bindRunFlags(cmd *cobra.Command, opts *runOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", string(batch.ModeMissing), "Selection mode: missing, existing or all")
	f.StringVarP(&opts.filter, "filter", "f", "", "Only process assets whose name matches this glob")
	f.StringSliceVar(&opts.names, "names", nil, "Comma-separated asset names to process")
	f.BoolVar(&opts.skipVideos, "skip-videos", false, "Never derive previews from video media")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Items per batch (default from config)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Concurrent items per batch (default from config)")
	f.IntVar(&opts.maxRetries, "max-retries", -1, "Retries per fetch or preview (default from config)")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print the run report as JSON")
	f.BoolVar(&opts.failOnErrors, "fail-on-errors", false, "Exit non-zero when any asset failed")
}

// resolveRunConfig applies flag overrides to the configured run defaults.
func (o *runOptions) resolveRunConfig(cmd *cobra.Command, base batch.RunConfig) (batch.RunConfig, error) {
	cfg := base
	flags := cmd.Flags()
	if flags.Changed("filter") {
		cfg.Filter = o.filter
	}
	if flags.Changed("skip-videos") {
		cfg.SkipVideoPreviews = o.skipVideos
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency = o.concurrency
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = o.maxRetries
	}
	return cfg, cfg.Validate()
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *runOptions, names []string) error {
	mode, err := batch.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	cfg, err := root.settings()
	if err != nil {
		return err
	}
	runCfg, err := opts.resolveRunConfig(cmd, cfg.Run)
	if err != nil {
		return err
	}

	memory.ConfigureFromEnv()
	metrics.Register()

	comps, err := startup.BuildComponents(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = comps.Close() }()

	// The run gets its own context; a signal goes through Cancel so the
	// report records a user cancellation.
	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		comps.Runner.Cancel()
	}()

	if len(names) == 0 {
		names = nil
	}

	out := cmd.OutOrStdout()
	reporter := newTermReporter(out)
	report, err := comps.Runner.Run(context.WithoutCancel(cmd.Context()), names, mode, runCfg, reporter)
	reporter.finish()
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		report.Outcomes = nil
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "encoding report")
		}
	} else {
		printReport(out, report)
	}

	if opts.failOnErrors && report.Failures() > 0 {
		return errors.Newf("%d asset(s) failed", report.Failures())
	}
	return nil
}

func printReport(w io.Writer, r batch.RunReport) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintln(w, "----------------------------------------")
	if r.Cancelled {
		_, _ = yellow.Fprintf(w, "CANCELLED %s run %s\n", r.Mode, r.RunID)
	} else {
		_, _ = bold.Fprintf(w, "FINISHED %s run %s\n", r.Mode, r.RunID)
	}
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Duration:            %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Assets:              %d (%d selected)\n", r.Total, r.Selected)
	fmt.Fprintf(w, "Skipped:             %d done, %d not selected, %d filtered\n",
		r.SkippedAlreadyDone, r.SkippedNotSelected, r.SkippedFiltered)
	_, _ = green.Fprintf(w, "Previews generated:  %d\n", r.PreviewsGenerated)
	fmt.Fprintf(w, "Placeholders:        %d (%d without images)\n", r.PlaceholdersCreated, r.NoImagesAvailable)
	if r.VideosSkipped > 0 {
		fmt.Fprintf(w, "Videos skipped:      %d\n", r.VideosSkipped)
	}
	if r.CancelledItems > 0 {
		fmt.Fprintf(w, "Cancelled items:     %d\n", r.CancelledItems)
	}

	if r.Failures() == 0 && r.PlaceholderFailures == 0 {
		return
	}
	_, _ = red.Fprintf(w, "Failures:            %d metadata, %d preview, %d placeholder\n",
		r.InfoFailures, r.PreviewFailures, r.PlaceholderFailures)

	for _, kind := range slices.Sorted(maps.Keys(r.ErrorsByKind)) {
		fmt.Fprintf(w, "  %-18s %d\n", string(kind)+":", r.ErrorsByKind[kind])
	}
	for _, name := range r.FailedNames {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}
