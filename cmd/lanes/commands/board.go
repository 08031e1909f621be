package commands

import (
	"fmt"

	"github.com/dyluth/lanes/internal/boardview"
	"github.com/dyluth/lanes/internal/printer"
	"github.com/spf13/cobra"
)

var boardOutputFormat string

var boardCmd = &cobra.Command{
	Use:   "board <pipeline>",
	Short: "Show a pipeline board grouped by stage",
	Long: `Load every entity of a pipeline from the store and show it grouped by stage.

Entities whose stage is not configured are shown in the first stage.

Output Formats:
  text - One colored section per stage
  json - The board as a JSON document

Examples:
  lanes board lead
  lanes board target --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardOutputFormat, "output", "o", "text", "Output format (text or json)")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	if boardOutputFormat != "text" && boardOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", boardOutputFormat),
			[]string{"Valid formats: text, json"},
		)
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
	lane, err := sess.lane(cmd.Context(), p)
	if err != nil {
		return err
	}

	view := boardview.Build(lane.Snapshot(), lane.Card)
	if boardOutputFormat == "json" {
		return boardview.WriteJSON(cmd.OutOrStdout(), view)
	}
	return boardview.WriteText(cmd.OutOrStdout(), view)
}
