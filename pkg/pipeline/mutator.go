package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// DefaultCommitTimeout bounds how long a commit may stay in flight before it
// is treated as failed and rolled back.
const DefaultCommitTimeout = 10 * time.Second

// core is the lock-guarded board data shared by Board and Mutator.
type core[E any] struct {
	mu       sync.Mutex
	pipeline PipelineType
	stages   map[string]Stage
	adapter  Adapter[E]
	state    *State
	entities map[string]E
}

func (c *core[E]) label(stageID string) string {
	if s, ok := c.stages[stageID]; ok {
		return s.Label
	}
	return stageID
}

// ticket carries one admitted transition from apply to resolve.
type ticket[E any] struct {
	entry PendingEntry
	req   CommitRequest
	prior E
	done  chan TransitionResult
}

// Mutator applies admitted transitions optimistically, commits them in the
// background and reconciles or rolls back when the commit resolves.
type Mutator[E any] struct {
	core      *core[E]
	pending   *PendingSet
	errors    *ErrorChannel
	committer Committer[E]
	timeout   time.Duration
	log       *eventLog
	observer  Observer
	handler   func(TransitionResult)

	wg conc.WaitGroup
}

// apply moves the entity to the end of the target bucket and registers the
// commit. The caller must hold core.mu.
func (m *Mutator[E]) apply(c Candidate) (*ticket[E], error) {
	entry, err := m.pending.Add(c.EntityID, c.FromStageID, c.ToStageID)
	if err != nil {
		return nil, err
	}

	prior := m.core.entities[c.EntityID]
	m.core.state.move(c.EntityID, c.ToStageID)
	m.core.entities[c.EntityID] = m.core.adapter.WithStageID(prior, c.ToStageID)

	req := CommitRequest{
		Pipeline:    m.core.pipeline,
		EntityID:    c.EntityID,
		FromStageID: c.FromStageID,
		ToStageID:   c.ToStageID,
	}
	if v, ok := m.core.adapter.(Versioned[E]); ok {
		req.ExpectedVersion = v.Version(prior)
	}

	return &ticket[E]{entry: entry, req: req, prior: prior, done: make(chan TransitionResult, 1)}, nil
}

// launch runs the commit on a tracked goroutine. The caller's cancellation is
// not propagated: once issued, a commit always resolves.
func (m *Mutator[E]) launch(ctx context.Context, t *ticket[E]) {
	ctx = context.WithoutCancel(ctx)
	m.wg.Go(func() {
		entity, err := m.commit(ctx, t.req)
		m.resolve(t, entity, err)
	})
}

func (m *Mutator[E]) commit(ctx context.Context, req CommitRequest) (E, error) {
	if m.timeout <= 0 {
		return m.committer.CommitTransition(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type reply struct {
		entity E
		err    error
	}
	replies := make(chan reply, 1)
	// Tracked so Wait also outlasts a collaborator still running past its timeout.
	m.wg.Go(func() {
		entity, err := m.committer.CommitTransition(ctx, req)
		replies <- reply{entity: entity, err: err}
	})

	select {
	case r := <-replies:
		return r.entity, r.err
	case <-ctx.Done():
		var zero E
		return zero, fmt.Errorf("%w after %s", ErrCommitTimeout, m.timeout)
	}
}

// resolve reconciles the board with the commit outcome.
func (m *Mutator[E]) resolve(t *ticket[E], returned E, commitErr error) {
	id := t.req.EntityID
	elapsed := time.Since(t.entry.StartedAt)
	result := TransitionResult{
		EntityID:    id,
		FromStageID: t.req.FromStageID,
		ToStageID:   t.req.ToStageID,
	}
	var (
		message   string
		corrected string
	)

	m.core.mu.Lock()
	current := m.pending.Remove(id, t.entry.Token)

	if commitErr == nil {
		result.Outcome = OutcomeCommitted
		result.FinalStageID = t.req.ToStageID
		// A newer move of the same entity owns its placement until it resolves.
		superseded := !current && m.pending.Contains(id)
		if prior, known := m.core.entities[id]; known && !superseded {
			final := t.req.ToStageID
			entity := m.core.adapter.WithStageID(prior, final)
			if m.core.adapter.ID(returned) == id {
				if s := m.core.adapter.StageID(returned); s != "" && m.core.state.HasStage(s) {
					final = s
				}
				entity = m.core.adapter.WithStageID(returned, final)
			}
			if at, _ := m.core.state.StageOf(id); at != final {
				m.core.state.move(id, final)
			}
			if final != t.req.ToStageID {
				corrected = final
			}
			result.FinalStageID = final
			m.core.entities[id] = entity
		}
	} else {
		reason := failureReason(commitErr)
		result.Outcome = OutcomeRolledBack
		if reason == ReasonConflict {
			result.Outcome = OutcomeConflicted
		}
		result.Reason = reason
		result.ErrorMessage = commitErr.Error()

		// A rebuild that cleared the entry is authoritative; leave its placement alone.
		if _, known := m.core.entities[id]; current && known {
			m.core.state.move(id, t.req.FromStageID)
			m.core.entities[id] = t.prior
		}
		message = m.failureMessage(t.req, reason)
	}
	inFlight := m.pending.Len()
	m.core.mu.Unlock()

	if message != "" {
		m.errors.Publish(message)
	}
	m.report(result, elapsed, !current, corrected)
	if m.observer != nil {
		m.observer.PendingChanged(m.core.pipeline, inFlight)
	}
	t.done <- result
}

func (m *Mutator[E]) failureMessage(req CommitRequest, reason Reason) string {
	msg := fmt.Sprintf("failed to move %s from %s to %s",
		req.EntityID, m.core.label(req.FromStageID), m.core.label(req.ToStageID))
	switch reason {
	case ReasonConflict:
		msg += ": it was changed by someone else, refresh and try again"
	case ReasonTimeout:
		msg += ": the server did not respond in time"
	}
	return msg
}

func (m *Mutator[E]) report(r TransitionResult, elapsed time.Duration, stale bool, corrected string) {
	data := map[string]interface{}{
		"entity_id":     r.EntityID,
		"from_stage_id": r.FromStageID,
		"to_stage_id":   r.ToStageID,
		"duration_ms":   elapsed.Milliseconds(),
	}
	if stale {
		data["stale"] = true
	}

	switch r.Outcome {
	case OutcomeCommitted:
		m.log.event("transition_committed", data)
		if corrected != "" {
			m.log.event("stage_corrected", map[string]interface{}{
				"entity_id":          r.EntityID,
				"requested_stage_id": r.ToStageID,
				"stage_id":           corrected,
			})
		}
	case OutcomeConflicted:
		data["error"] = r.ErrorMessage
		m.log.event("transition_conflicted", data)
	default:
		data["reason"] = string(r.Reason)
		data["error"] = r.ErrorMessage
		m.log.event("transition_rolled_back", data)
	}

	if m.observer != nil {
		m.observer.TransitionObserved(m.core.pipeline, r, elapsed)
	}
	if m.handler != nil {
		m.handler(r)
	}
}

// Wait blocks until every in-flight commit has resolved and every commit
// collaborator call has returned, including calls that outlived the commit
// timeout.
func (m *Mutator[E]) Wait() {
	m.wg.Wait()
}
