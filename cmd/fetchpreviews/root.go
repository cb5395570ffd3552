package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/startup"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "fetchpreviews",
		Short: "Fetch metadata and generate previews for model assets",
		Long: `fetchpreviews walks the asset directory, looks every asset up in the
remote catalog and saves a preview image next to it. Assets without usable
media get a placeholder so later runs skip them.

Configuration comes from the same sources as the server: defaults, the YAML
file named by --config or PREVIEW_CONFIG, then environment variables.

Examples:
	# Generate previews for assets that have none
	fetchpreviews run

	# Refresh every preview of SDXL assets, images only
	fetchpreviews run --mode all --filter 'sdxl-*' --skip-videos

	# Show how many assets have previews
	fetchpreviews status

	# Show the last 5 runs
	fetchpreviews history --limit 5`,
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (%s) %s", startup.Version, startup.Commit, startup.BuildTime),
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.SetOutput(cmd.ErrOrStderr(), "console")
			if !opts.verbose {
				logging.SetLevel(logging.LevelWarn)
			}
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: $"+startup.ConfigFileEnv+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print initialization details")

	root.AddCommand(newRunCmd(opts), newStatusCmd(opts), newHistoryCmd(opts))
	return root
}

// settings resolves the configuration and prepares the directories.
func (o *rootOptions) settings() (*startup.Config, error) {
	return startup.Load(o.configPath())
}

func (o *rootOptions) configPath() string {
	if o.configFile != "" {
		return o.configFile
	}
	return os.Getenv(startup.ConfigFileEnv)
}
