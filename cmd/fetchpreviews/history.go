package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/database"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs, newest first",
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

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", database.DefaultRunHistory, "Number of runs to show")
	return cmd
}

func printHistory(w io.Writer, runs []batch.RunReport) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tMODE\tSELECTED\tPREVIEWS\tPLACEHOLDERS\tFAILED\tDURATION\tSTATUS")
	for _, r := range runs {
		status := "done"
		if r.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Mode, r.Selected, r.PreviewsGenerated, r.PlaceholdersCreated,
			r.Failures(), r.Duration().Round(time.Second), status)
	}
	_ = tw.Flush()
}
