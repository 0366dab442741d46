package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/fsindex/configs"
	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage fsindex configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/fsindex/config.yaml)
  3. Project config (.fsindex.yaml in the indexed root)
  4. .env in the indexed root
  5. Environment variables (FSINDEX_*)`,
		Example: `  # Create the user config with defaults
  fsindex config init

  # Show the effective configuration for the current directory
  fsindex config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		Long: `Write a configuration template, with every default listed but commented
out, to the user config file, or with --project to .fsindex.yaml in the
current directory. An existing file is only replaced with --force, after a
timestamped backup is taken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := config.GetUserConfigPath(), configs.UserConfigTemplate
			if project {
				abs, err := filepath.Abs(config.ProjectConfigName)
				if err != nil {
					return err
				}
				path, template = abs, configs.ProjectConfigTemplate
			}
			return runConfigInit(cmd, path, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Write "+config.ProjectConfigName+" in the current directory")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Status("💡", "Use --force to replace it with the template")
		return nil
	}

	backup, err := config.BackupConfig(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	out.Successf("Wrote %s", path)
	if backup != "" {
		out.Statusf("", "Previous version saved as %s", backup)
	}
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Print the configuration that applies to the current directory after merging every source.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
