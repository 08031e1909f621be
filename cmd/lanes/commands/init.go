package commands

import (
	"fmt"

	"github.com/dyluth/lanes/internal/scaffold"
	"github.com/dyluth/lanes/internal/settings"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter pipeline configuration",
	Long: `Write a lanes.yml containing the built-in CRM pipelines (lead, mandate,
target) and engine defaults, ready to customise.

The file is written to the --config path (default: lanes.yml).

Use --force to overwrite an existing configuration.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing configuration file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := settings.Load(cmd.Flags())
	if err != nil {
		return err
	}

	if !forceInit {
		if err := scaffold.CheckExisting(s.ConfigPath); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(s.ConfigPath, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(s.ConfigPath)
	return nil
}
