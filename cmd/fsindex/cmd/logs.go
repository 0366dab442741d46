package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/logging"
	"github.com/Aman-CERP/fsindex/internal/ui"
)

type logsOptions struct {
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the most recent entries of the fsindex log (~/.fsindex/logs/fsindex.log
unless logging.file or --file says otherwise).`,
		Example: `  fsindex logs -n 100
  fsindex logs --level warn
  fsindex logs --filter index_run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to read from the end of the log")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level to show (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this regular expression")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the log file")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	explicit := opts.file
	if explicit == "" {
		if cfg, err := loadConfig("."); err == nil {
			explicit = cfg.Logging.File
		}
	}
	path, err := logging.FindLogFile(explicit)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	v := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
	}, cmd.OutOrStdout())

	entries, err := v.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	v.Print(entries)
	return nil
}
