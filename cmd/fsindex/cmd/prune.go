package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/output"
)

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune [path]",
		Short: "Remove index entries whose files no longer exist",
		Long: `Check every indexed file below path (default: the current directory) and
remove the entries of files that are gone. Fails if an index run is active.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			s, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			o, err := newOrchestrator(cfg, s, nil, nil)
			if err != nil {
				return err
			}
			defer o.Close()

			n, err := o.Prune(cmd.Context(), root)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			if n == 0 {
				out.Success("Index is up to date")
				return nil
			}
			out.Successf("Removed %d vanished entries", n)
			return nil
		},
	}
}
