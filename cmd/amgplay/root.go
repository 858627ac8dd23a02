package main

import (
	"fmt"

	"github.com/ManuGH/amgplay/internal/config"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	dataDir    string

	count       int
	mode        string
	download    bool
	downloadDir string
	statusAddr  string
	noVideo     bool
}

func newRootCmd() *cobra.Command {
	return newRootCommand(&rootOptions{})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amgplay",
		Short: "Play the music embedded in the latest album reviews",
		Long: "amgplay walks the review listing newest first, extracts the embedded players " +
			"of each review and plays (or downloads) the tracks one after another.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (json, console)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding the play history")

	f := cmd.Flags()
	f.IntVarP(&opts.count, "count", "n", 0, "number of reviews to process")
	f.StringVarP(&opts.mode, "mode", "m", "", "run mode: interactive, radio or discover")
	f.BoolVarP(&opts.download, "download", "d", false, "download tracks instead of playing them")
	f.StringVar(&opts.downloadDir, "download-dir", "", "destination root for downloads")
	f.StringVar(&opts.statusAddr, "status-addr", "", "serve /status and /metrics on this address")
	f.BoolVar(&opts.noVideo, "audio-only", false, "never synthesize a video for audio-only tracks")

	cmd.AddCommand(newHistoryCmd(opts), newVersionCmd())
	return cmd
}

// load applies defaults, the config file, ENV and then explicitly set flags.
func (o *rootOptions) load(cmd *cobra.Command) (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath, version).Load()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("count") {
		cfg.Count = o.count
	}
	if flags.Changed("mode") {
		cfg.Mode = o.mode
	}
	if flags.Changed("download") {
		cfg.Download = o.download
	}
	if flags.Changed("download-dir") {
		cfg.DownloadDir = o.downloadDir
	}
	if flags.Changed("status-addr") {
		cfg.Status.ListenAddr = o.statusAddr
	}
	if flags.Changed("audio-only") && o.noVideo {
		cfg.Player.RequireVideo = false
	}

	if err := config.Finalize(&cfg); err != nil {
		return cfg, err
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Version: cfg.Version,
	})
	logger := log.WithComponent("cli")
	logger.Debug().
		Str(log.FieldEvent, "config.loaded").
		Str("config_path", o.configPath).
		Str(log.FieldMode, cfg.Mode).
		Int("count", cfg.Count).
		Msg("configuration loaded")
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "amgplay %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
