package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dyluth/lanes/internal/printer"
	"github.com/dyluth/lanes/internal/watch"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchPipeline     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream entity changes in real time",
	Long: `Stream entity creations, stage transitions, updates and deletions
as the store publishes them. Requires the redis backend.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  lanes watch
  lanes watch --pipeline mandate
  lanes watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVarP(&watchPipeline, "pipeline", "p", "", "only show events for this pipeline")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	filter := watch.Filter{}
	if watchPipeline != "" {
		if filter.Pipeline, err = sess.pipeline(watchPipeline); err != nil {
			return err
		}
	}

	notifier, ok := sess.backend.(store.Notifier)
	if !ok {
		return printer.Error(
			"watch is not supported by this backend",
			fmt.Sprintf("The %s backend does not publish entity events.", sess.settings.Backend),
			[]string{"Use --backend redis"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if format == watch.OutputFormatDefault {
		printer.Step("Watching instance '%s'...\n", sess.settings.Instance)
	}
	return watch.StreamEntityEvents(ctx, notifier, format, filter, cmd.OutOrStdout(), watch.RegistryLabeler(sess.registry))
}
