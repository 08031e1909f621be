package pipeline

import (
	"context"
	"fmt"
)

// PipelineType names one stage set. The CRM ships three of them, but the
// registry accepts any configured name.
type PipelineType string

const (
	// PipelineLead is the sales lead pipeline
	PipelineLead PipelineType = "lead"

	// PipelineMandate is the acquisition mandate pipeline
	PipelineMandate PipelineType = "mandate"

	// PipelineTarget is the acquisition target pipeline
	PipelineTarget PipelineType = "target"
)

// Stage is one ordered column of a pipeline.
// Stages are immutable once loaded; Ordinal defines display order.
type Stage struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Ordinal  int    `json:"ordinal"`
	Color    string `json:"color,omitempty"`
	Terminal bool   `json:"terminal,omitempty"` // Read by adapter guards, ignored by the core engine
}

// Adapter gives the engine access to the stage-membership field of an entity.
// The engine never reads or writes any other part of E.
type Adapter[E any] interface {
	ID(entity E) string
	StageID(entity E) string
	WithStageID(entity E, stageID string) E
}

// Versioned is implemented by adapters whose entities carry an optimistic
// concurrency token. When present, the token is sent with every commit.
type Versioned[E any] interface {
	Version(entity E) int64
}

// Guard lets a pipeline adapter refuse moves the core engine would admit,
// e.g. leaving a terminal stage. Returning an error rejects the transition
// with ReasonForbidden.
type Guard[E any] interface {
	Allow(entity E, from, to Stage) error
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc[E any] func(entity E, from, to Stage) error

// Allow calls f.
func (f GuardFunc[E]) Allow(entity E, from, to Stage) error {
	return f(entity, from, to)
}

// CommitRequest is what the engine asks the remote collaborator to persist.
type CommitRequest struct {
	Pipeline        PipelineType `json:"pipeline"`
	EntityID        string       `json:"entity_id"`
	FromStageID     string       `json:"from_stage_id"`
	ToStageID       string       `json:"to_stage_id"`
	ExpectedVersion int64        `json:"expected_version,omitempty"` // 0 = no version check
}

// Committer persists a stage change. It returns the updated entity, whose
// stage may differ from the requested one if the server overrode the move.
// Any error triggers a rollback.
type Committer[E any] interface {
	CommitTransition(ctx context.Context, req CommitRequest) (E, error)
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc[E any] func(ctx context.Context, req CommitRequest) (E, error)

// CommitTransition calls f.
func (f CommitFunc[E]) CommitTransition(ctx context.Context, req CommitRequest) (E, error) {
	return f(ctx, req)
}

// Source supplies the authoritative entity list of a pipeline.
type Source[E any] interface {
	List(ctx context.Context, p PipelineType) ([]E, error)
}

// Outcome is the final (or immediate) result of a transition request.
type Outcome string

const (
	// OutcomeNoOp means nothing happened: same-stage drop, drop outside any
	// target, or a click that never became a drag
	OutcomeNoOp Outcome = "noop"

	// OutcomePending means the optimistic move was applied and the commit is in flight
	OutcomePending Outcome = "pending"

	// OutcomeCommitted means the remote commit succeeded
	OutcomeCommitted Outcome = "committed"

	// OutcomeRolledBack means the remote commit failed and the move was undone
	OutcomeRolledBack Outcome = "rolled_back"

	// OutcomeConflicted means the entity changed remotely since it was loaded;
	// the move was undone
	OutcomeConflicted Outcome = "conflicted"

	// OutcomeRejected means validation refused the move; nothing was committed
	OutcomeRejected Outcome = "rejected"
)

// Reason qualifies a rejected or failed transition.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonEntityBusy       Reason = "entity_busy"
	ReasonInvalidReference Reason = "invalid_reference"
	ReasonForbidden        Reason = "forbidden"
	ReasonRemoteFailure    Reason = "remote_failure"
	ReasonConflict         Reason = "conflict"
	ReasonTimeout          Reason = "timeout"
)

// TransitionResult reports what happened to one transition request.
type TransitionResult struct {
	EntityID     string  `json:"entity_id"`
	FromStageID  string  `json:"from_stage_id"`
	ToStageID    string  `json:"to_stage_id"`
	Outcome      Outcome `json:"outcome"`
	Reason       Reason  `json:"reason,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`

	// FinalStageID is the stage the store settled on for a committed move.
	// It differs from ToStageID when the server corrected the placement.
	FinalStageID string `json:"final_stage_id,omitempty"`
}

// Final reports whether the result is a resolution rather than the
// immediate OutcomePending acknowledgement.
func (r TransitionResult) Final() bool {
	return r.Outcome != OutcomePending
}

// Corrected reports whether a committed move landed in a stage other than
// the one requested.
func (r TransitionResult) Corrected() bool {
	return r.Outcome == OutcomeCommitted && r.FinalStageID != "" && r.FinalStageID != r.ToStageID
}

func (r TransitionResult) String() string {
	s := fmt.Sprintf("%s %s -> %s: %s", r.EntityID, r.FromStageID, r.ToStageID, r.Outcome)
	if r.Reason != ReasonNone {
		s += " (" + string(r.Reason) + ")"
	}
	return s
}

// Candidate is a transition produced by a drop, before validation.
type Candidate struct {
	EntityID    string
	FromStageID string
	ToStageID   string
}
