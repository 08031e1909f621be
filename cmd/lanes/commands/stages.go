package commands

import (
	"fmt"

	"github.com/dyluth/lanes/internal/boardview"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/spf13/cobra"
)

var stagesCmd = &cobra.Command{
	Use:   "stages [pipeline]",
	Short: "List the configured stages of each pipeline",
	Long: `List pipelines and their stages in board order.

Examples:
  # All pipelines
  lanes stages

  # Only the mandate pipeline
  lanes stages mandate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStages,
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

func runStages(cmd *cobra.Command, args []string) error {
	sess, err := loadSession(cmd)
	if err != nil {
		return err
	}

	pipelines := sess.registry.Pipelines()
	if len(args) == 1 {
		p, err := sess.pipeline(args[0])
		if err != nil {
			return err
		}
		pipelines = []pipeline.PipelineType{p}
	}

	out := cmd.OutOrStdout()
	for i, p := range pipelines {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s\n", p)
		stages, _ := sess.registry.Stages(p)
		for _, s := range stages {
			line := fmt.Sprintf("  %d. %-14s %s", s.Ordinal, s.ID, boardview.StageColor(s.Color).Sprint(s.Label))
			if s.Terminal {
				line += " (closed)"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
