package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"preview-fetcher/internal/assets"
	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/database"
	"preview-fetcher/internal/storage"
)

// previewStatus is the partition of the asset catalog by preview state.
type previewStatus struct {
	Assets          int
	Filtered        int
	WithPreview     int
	PlaceholderOnly int
	Missing         int
	LastRun         time.Time
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many assets have previews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.settings()
			if err != nil {
				return err
			}
			db, err := database.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			store := storage.New(db, cfg.AssetDir, cfg.CacheDir)
			catalog := assets.NewCatalog(cfg.AssetDir, assets.DefaultWalkerConfig())

			st, err := collectStatus(cmd.Context(), catalog, store, db, filter)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only count assets whose name matches this glob")
	return cmd
}

type lastRunSource interface {
	GetLastRun(ctx context.Context) (time.Time, error)
}

func collectStatus(ctx context.Context, resolver batch.AssetResolver, index batch.AvailabilityIndex, runs lastRunSource, filter string) (previewStatus, error) {
	found, err := resolver.Assets(ctx)
	if err != nil {
		return previewStatus{}, err
	}
	sel, err := batch.Select(ctx, found, batch.ModeAll, filter, index)
	if err != nil {
		return previewStatus{}, err
	}
	last, err := runs.GetLastRun(ctx)
	if err != nil {
		return previewStatus{}, err
	}
	return previewStatus{
		Assets:          len(found),
		Filtered:        sel.Filtered,
		WithPreview:     sel.Existing,
		PlaceholderOnly: sel.PlaceholderOnly,
		Missing:         sel.Missing,
		LastRun:         last,
	}, nil
}

func printStatus(w io.Writer, st previewStatus) {
	bold := color.New(color.Bold)

	_, _ = bold.Fprintf(w, "Assets:            %d\n", st.Assets)
	if st.Filtered > 0 {
		fmt.Fprintf(w, "Filtered out:      %d\n", st.Filtered)
	}
	fmt.Fprintf(w, "With preview:      %d\n", st.WithPreview)
	fmt.Fprintf(w, "Placeholder only:  %d\n", st.PlaceholderOnly)
	if st.Missing > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(w, "Missing:           %d\n", st.Missing)
	} else {
		fmt.Fprintf(w, "Missing:           %d\n", st.Missing)
	}
	if st.LastRun.IsZero() {
		fmt.Fprintln(w, "Last run:          never")
	} else {
		fmt.Fprintf(w, "Last run:          %s\n", st.LastRun.Local().Format(time.RFC1123))
	}
}
