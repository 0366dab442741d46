// Package cmd provides the CLI commands for fsindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/logging"
	"github.com/Aman-CERP/fsindex/internal/profiling"
	"github.com/Aman-CERP/fsindex/pkg/version"
)

// globalOptions holds the persistent flags and what PersistentPreRunE sets
// up from them.
type globalOptions struct {
	debug   bool
	logFile string
	profile profiling.Options

	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the fsindex CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "fsindex",
		Short: "Index and search file metadata",
		Long: `fsindex walks a directory tree, records metadata for every file in a
local SQLite index and answers queries over it.

Search modes:
  exact      case-insensitive substring of the file name or path
  fuzzy      files ranked by how many query terms they contain
  semantic   files ranked by embedding similarity to the query

Queries may carry constraints in plain words, for example
"reports modified in the last 2 weeks larger than 1 mb".`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.start()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return g.stop()
		},
	}
	cmd.SetVersionTemplate("fsindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging (also mirrored to stderr)")
	cmd.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Write logs to this file instead of the configured one")
	cmd.PersistentFlags().StringVar(&g.profile.CPUPath, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.HeapPath, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.TracePath, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// start installs the default logger and starts profiling. Logging settings
// come from the configuration of the working directory; a broken config is
// reported by the command that loads it, so here it only falls back to
// defaults.
func (g *globalOptions) start() error {
	cfg, err := config.Load(".")
	if err != nil {
		cfg = config.NewConfig()
	}

	lc := logging.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
	}
	if lc.FilePath == "" {
		lc.FilePath = logging.DefaultLogPath()
	}
	if g.logFile != "" {
		lc.FilePath = g.logFile
	}
	if g.debug {
		lc.Level = "debug"
		lc.WriteToStderr = true
	}

	cleanup, err := logging.SetupDefault(lc)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	g.loggingCleanup = cleanup
	slog.Debug("cli_started",
		slog.String("version", version.Version),
		slog.Any("args", os.Args[1:]))

	if g.profile.Enabled() {
		p, err := profiling.Start(g.profile)
		if err != nil {
			return err
		}
		g.profiler = p
	}
	return nil
}

func (g *globalOptions) stop() error {
	err := g.profiler.Stop()
	g.profiler = nil

	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
	return err
}
