package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/erazemk/powerlister/internal/config"
)

// rootOptions carries the persistent flags and the state prepared for subcommands.
type rootOptions struct {
	dbPath   string
	logPath  string
	logLevel string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "powerlister",
		Short: "Power Lister - reseller inventory and marketplace listings",
		Long: `Power Lister keeps a reseller's item inventory and lists items on
online marketplaces. Run "powerlister serve" to start the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.dbPath, "db", "d", "", `database path, or "memory" (default from POWERLISTER_DB)`)
	flags.StringVarP(&opts.logPath, "log", "l", "", "log file path (default from LOG_FILE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSeedCmd(opts),
		newItemsCmd(opts),
		newItemCmd(opts),
		newListCmd(opts),
		newUnlistCmd(opts),
		newStatsCmd(opts),
		newMarketplacesCmd(opts),
	)
	return cmd
}

// prepare loads the configuration, applies flag overrides and sets up logging.
// Only serve logs to stdout; the other commands keep stdout for their output.
func (o *rootOptions) prepare(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.OverrideDB(o.dbPath)
	}
	if o.logPath != "" {
		cfg.LogFile = o.logPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	if cmd.Name() != "serve" {
		stdout = cmd.ErrOrStderr()
	}
	logger, closeLog, err := setupLogger(stdout, cmd.ErrOrStderr(), cfg.LogFile, cfg.Level())
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	o.closeLog = closeLog
	return nil
}
