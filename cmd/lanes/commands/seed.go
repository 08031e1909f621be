package commands

import (
	"fmt"

	"github.com/dyluth/lanes/internal/printer"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	seedTitle      string
	seedStage      string
	seedID         string
	seedAttributes map[string]string
)

var seedCmd = &cobra.Command{
	Use:   "seed <pipeline>",
	Short: "Create an entity in a pipeline",
	Long: `Create an entity in the store, in the first stage of its pipeline
unless --stage is given.

Attributes carry the typed fields of CRM entities: company for leads,
client for mandates, mandate_id for targets.

Examples:
  lanes seed lead --title "Globex" --attr company="Globex Corp"
  lanes seed target --title "Hooli" --stage contacted --attr mandate_id=<id>`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedTitle, "title", "t", "", "entity title (required)")
	seedCmd.Flags().StringVarP(&seedStage, "stage", "s", "", "initial stage (default: first stage)")
	seedCmd.Flags().StringVar(&seedID, "id", "", "entity ID (default: a new UUID)")
	seedCmd.Flags().StringToStringVarP(&seedAttributes, "attr", "a", nil, "attribute key=value (repeatable)")
	seedCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := sess.pipeline(args[0])
	if err != nil {
		return err
	}

	stages, _ := sess.registry.Stages(p)
	stageID := stages[0].ID
	if seedStage != "" {
		if _, err := sess.registry.Stage(p, seedStage); err != nil {
			return printer.Error(
				fmt.Sprintf("unknown stage '%s'", seedStage),
				err.Error(),
				[]string{fmt.Sprintf("Run 'lanes stages %s' to list its stages", p)},
			)
		}
		stageID = seedStage
	}

	id := seedID
	if id == "" {
		id = uuid.New().String()
	}

	stored, err := sess.backend.Put(cmd.Context(), store.Record{
		ID:         id,
		Pipeline:   string(p),
		StageID:    stageID,
		Title:      seedTitle,
		Attributes: seedAttributes,
	})
	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}

	printer.Success("Created %s %q in %s\n", p, stored.Title, sess.label(p)(stored.StageID))
	printer.Info("  id: %s\n", stored.ID)
	return nil
}
