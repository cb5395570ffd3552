package main

import (
	"fmt"
	"os"

	"preview-fetcher/internal/startup"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if version != "dev" {
		startup.Version, startup.Commit, startup.BuildTime = version, commit, date
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
