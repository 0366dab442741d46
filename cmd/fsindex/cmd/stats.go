package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/output"
	"github.com/Aman-CERP/fsindex/internal/search"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Show file counts and sizes per category, embedding coverage and when the index was last updated.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			s, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			stats, err := search.New(s, nil).Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(cmd.OutOrStdout(), output.StatsToJSON(stats))
			}
			output.New(cmd.OutOrStdout()).Stats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
