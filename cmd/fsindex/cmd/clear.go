package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/output"
)

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry from the index",
		Long: `Delete every file record and embedding from the index. The database file
and its settings are kept; run index again to rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			s, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if !yes {
				ok, err := confirm(cmd.OutOrStdout(), cmd.InOrStdin(),
					"Delete every entry from "+cfg.Paths.DBPath+"?")
				if err != nil {
					return err
				}
				if !ok {
					out.Status("", "Aborted.")
					return nil
				}
			}

			if err := s.Clear(cmd.Context()); err != nil {
				return err
			}
			slog.Info("index_cleared", slog.String("db_path", cfg.Paths.DBPath))
			out.Success("Index cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
