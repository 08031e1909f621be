package pipeline

import (
	"fmt"
)

// Decision is the validator's verdict on a candidate transition.
type Decision struct {
	Admitted bool
	NoOp     bool
	Reason   Reason
	Err      error
}

// Validator admits or rejects candidate transitions for one pipeline.
// It imposes no stage-ordering rule; any stage may move to any other unless
// the optional guard refuses.
type Validator[E any] struct {
	stages  map[string]Stage
	pending *PendingSet
	guard   Guard[E]
}

// NewValidator creates a validator. guard may be nil.
func NewValidator[E any](stages []Stage, pending *PendingSet, guard Guard[E]) *Validator[E] {
	index := make(map[string]Stage, len(stages))
	for _, s := range stages {
		index[s.ID] = s
	}
	return &Validator[E]{stages: index, pending: pending, guard: guard}
}

// Validate checks, in order: same stage, entity busy, unknown references,
// then the guard. lookup returns the entity's current value.
func (v *Validator[E]) Validate(c Candidate, state *State, lookup func(entityID string) (E, bool)) Decision {
	if c.FromStageID == c.ToStageID {
		return Decision{NoOp: true}
	}

	if v.pending.Contains(c.EntityID) {
		return Decision{
			Reason: ReasonEntityBusy,
			Err:    fmt.Errorf("%w: %q", ErrEntityBusy, c.EntityID),
		}
	}

	entity, known := lookup(c.EntityID)
	if _, onBoard := state.StageOf(c.EntityID); !known || !onBoard {
		return Decision{
			Reason: ReasonInvalidReference,
			Err:    fmt.Errorf("%w: %q", ErrUnknownEntity, c.EntityID),
		}
	}
	to, ok := v.stages[c.ToStageID]
	if !ok {
		return Decision{
			Reason: ReasonInvalidReference,
			Err:    fmt.Errorf("%w: %q", ErrUnknownStage, c.ToStageID),
		}
	}
	from, ok := v.stages[c.FromStageID]
	if !ok {
		return Decision{
			Reason: ReasonInvalidReference,
			Err:    fmt.Errorf("%w: %q", ErrUnknownStage, c.FromStageID),
		}
	}

	if v.guard != nil {
		if err := v.guard.Allow(entity, from, to); err != nil {
			return Decision{
				Reason: ReasonForbidden,
				Err:    fmt.Errorf("%w: %v", ErrForbidden, err),
			}
		}
	}

	return Decision{Admitted: true}
}
