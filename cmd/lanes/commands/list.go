package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/lanes/internal/listing"
	"github.com/dyluth/lanes/internal/printer"
	"github.com/dyluth/lanes/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	listOutputFormat string
	listSince        string
	listUntil        string
	listStage        string
	listTitle        string
)

var listCmd = &cobra.Command{
	Use:   "list <pipeline>",
	Short: "List the entities of a pipeline",
	Long: `List the stored entities of a pipeline in creation order.

Output Formats:
  default - Table with truncated titles
  jsonl   - Complete records as line-delimited JSON

Examples:
  lanes list lead
  lanes list mandate --stage 'clos*' --since 24h
  lanes list target --title hooli --output jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var getCmd = &cobra.Command{
	Use:   "get <entity-id>",
	Short: "Show one entity as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	listCmd.Flags().StringVar(&listSince, "since", "", "only entities updated after this time (duration like 1h or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "only entities updated before this time (duration like 1h or RFC3339)")
	listCmd.Flags().StringVar(&listStage, "stage", "", "glob pattern on stage ID")
	listCmd.Flags().StringVar(&listTitle, "title", "", "case-insensitive title substring")
	rootCmd.AddCommand(listCmd, getCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format := listing.OutputFormat(listOutputFormat)
	if format != listing.OutputFormatDefault && format != listing.OutputFormatJSONL {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	window, err := timespec.ParseRange(listSince, listUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time range", err.Error(), []string{"Use a duration like 1h30m or an RFC3339 timestamp"})
	}

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := sess.pipeline(args[0])
	if err != nil {
		return err
	}

	filter := listing.Filter{Updated: window, StageGlob: listStage, Title: listTitle}
	return listing.List(cmd.Context(), sess.backend, p, format, filter, sess.label(p), cmd.OutOrStdout())
}

func runGet(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	err = listing.Get(cmd.Context(), sess.backend, args[0], cmd.OutOrStdout())
	if listing.IsNotFound(err) {
		return printer.Error(
			fmt.Sprintf("entity '%s' not found", args[0]),
			fmt.Sprintf("No entity with this ID exists in instance '%s'.", sess.settings.Instance),
			[]string{"Run 'lanes list <pipeline>' to list entity IDs"},
		)
	}
	return err
}
