package crm

import (
	"fmt"

	"github.com/dyluth/lanes/pkg/pipeline"
)

// TerminalGuard refuses to move an entity out of a terminal stage such as
// Won, Lost or Closed. Reopening a deal is a separate workflow.
func TerminalGuard[E any]() pipeline.Guard[E] {
	return pipeline.GuardFunc[E](func(_ E, from, _ pipeline.Stage) error {
		if from.Terminal {
			return fmt.Errorf("%s is a closed stage", from.Label)
		}
		return nil
	})
}
