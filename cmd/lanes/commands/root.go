package commands

import (
	"fmt"

	"github.com/dyluth/lanes/internal/settings"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lanes",
	Short: "Lanes - pipeline boards for leads, mandates and targets",
	Long: `Lanes moves CRM entities between the stages of their pipeline.

Every move is validated, applied optimistically, committed to the entity
store and rolled back if the store refuses it. Boards are grouped by the
stages configured in lanes.yml.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	settings.RegisterFlags(rootCmd.PersistentFlags(), false)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print board engine events to stderr")
}
