package commands

import (
	"github.com/dyluth/lanes/internal/printer"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <pipeline> <entity-id> <stage-id>",
	Short: "Move an entity to another stage",
	Long: `Move an entity to another stage of its pipeline. The entity may be given
by its full ID or a unique prefix of at least 6 characters.

The move is validated against the board, applied, and committed to the
store. The command waits for the commit and reports the outcome; a rejected,
rolled back or conflicted move exits non-zero.

Examples:
  lanes move lead 3f0c2a qualified
  lanes move target 9a1b7c nda --backend postgres --postgres-dsn $DSN`,
	Args: cobra.ExactArgs(3),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
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
	defer lane.Wait()

	id, err := resolveEntity(lane, args[1])
	if err != nil {
		return err
	}
	result := lane.Move(cmd.Context(), id, args[2])
	return printer.Transition(result, sess.label(p))
}
