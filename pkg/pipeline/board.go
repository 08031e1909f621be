package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Observer receives board activity, typically to record metrics.
// Calls are made outside the board lock.
type Observer interface {
	TransitionObserved(p PipelineType, r TransitionResult, elapsed time.Duration)
	PendingChanged(p PipelineType, inFlight int)
	Rebuilt(p PipelineType, counts map[string]int)
}

type options struct {
	guard              any
	commitTimeout      time.Duration
	activationDistance float64
	logger             *log.Logger
	observer           Observer
	handler            func(TransitionResult)
}

// Option configures a Board.
type Option func(*options)

// WithGuard installs a business-rule hook consulted after the core rules.
// The guard's entity type must match the board's.
func WithGuard[E any](g Guard[E]) Option {
	return func(o *options) { o.guard = g }
}

// WithCommitTimeout overrides DefaultCommitTimeout. Zero or less disables the timeout.
func WithCommitTimeout(d time.Duration) Option {
	return func(o *options) { o.commitTimeout = d }
}

// WithActivationDistance overrides DefaultActivationDistance.
func WithActivationDistance(d float64) Option {
	return func(o *options) { o.activationDistance = d }
}

// WithLogger sends board logs to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers an Observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithResultHandler registers a callback for every final TransitionResult:
// rejections, no-op drops and commit resolutions. The handler runs
// synchronously on the requesting or commit goroutine and must not block;
// Wait does not return while a handler is still running.
func WithResultHandler(h func(TransitionResult)) Option {
	return func(o *options) { o.handler = h }
}

// Board is the transition engine for one pipeline type.
type Board[E any] struct {
	pipeline   PipelineType
	stages     []Stage
	core       *core[E]
	pending    *PendingSet
	errors     *ErrorChannel
	validator  *Validator[E]
	mutator    *Mutator[E]
	session    *DragSession
	activation float64
	log        *eventLog
	observer   Observer
	handler    func(TransitionResult)
}

// NewBoard creates an empty board for pipeline p. Call Rebuild or Refresh to load entities.
func NewBoard[E any](p PipelineType, reg *Registry, adapter Adapter[E], committer Committer[E], opts ...Option) (*Board[E], error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if committer == nil {
		return nil, fmt.Errorf("committer cannot be nil")
	}
	stages, err := reg.Stages(p)
	if err != nil {
		return nil, err
	}

	o := options{
		commitTimeout:      DefaultCommitTimeout,
		activationDistance: DefaultActivationDistance,
		logger:             log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var guard Guard[E]
	if o.guard != nil {
		g, ok := o.guard.(Guard[E])
		if !ok {
			return nil, fmt.Errorf("guard of type %T does not match the board's entity type", o.guard)
		}
		guard = g
	}

	index := make(map[string]Stage, len(stages))
	for _, s := range stages {
		index[s.ID] = s
	}
	c := &core[E]{
		pipeline: p,
		stages:   index,
		adapter:  adapter,
		state:    newState(stages),
		entities: make(map[string]E),
	}
	logs := &eventLog{logger: o.logger, pipeline: p}
	pending := NewPendingSet()
	errs := NewErrorChannel()

	return &Board[E]{
		pipeline:  p,
		stages:    stages,
		core:      c,
		pending:   pending,
		errors:    errs,
		validator: NewValidator(stages, pending, guard),
		mutator: &Mutator[E]{
			core:      c,
			pending:   pending,
			errors:    errs,
			committer: committer,
			timeout:   o.commitTimeout,
			log:       logs,
			observer:  o.observer,
			handler:   o.handler,
		},
		activation: o.activationDistance,
		log:        logs,
		observer:   o.observer,
		handler:    o.handler,
	}, nil
}

// Pipeline returns the board's pipeline type.
func (b *Board[E]) Pipeline() PipelineType {
	return b.pipeline
}

// Stages returns a copy of the board's stages in ordinal order.
func (b *Board[E]) Stages() []Stage {
	out := make([]Stage, len(b.stages))
	copy(out, b.stages)
	return out
}

// Errors returns the board's user-visible error channel.
func (b *Board[E]) Errors() *ErrorChannel {
	return b.errors
}

// Rebuild regroups the board from an authoritative entity list.
// The State is updated in place. Pending markers whose entity disappeared,
// or whose authoritative stage differs from the pending target, are cleared;
// their commits still resolve but no longer roll back.
func (b *Board[E]) Rebuild(entities []E) GroupReport {
	state, report := Group(entities, b.stages, b.core.adapter)

	byID := make(map[string]E, len(entities))
	for _, e := range entities {
		id := b.core.adapter.ID(e)
		if _, seen := byID[id]; !seen {
			byID[id] = e
		}
	}

	b.core.mu.Lock()
	b.core.state.replace(state)
	b.core.entities = byID

	var cleared []PendingEntry
	for _, id := range b.pending.IDs() {
		entry, ok := b.pending.Get(id)
		if !ok {
			continue
		}
		if at, onBoard := state.StageOf(id); !onBoard || at != entry.ToStageID {
			b.pending.Clear(id)
			cleared = append(cleared, entry)
		}
	}
	counts := state.Counts()
	total := state.Len()
	inFlight := b.pending.Len()
	b.core.mu.Unlock()

	b.log.event("board_rebuilt", map[string]interface{}{
		"entity_count": total,
		"fallback":     len(report.Fallback),
		"duplicates":   len(report.Duplicates),
		"unplaced":     len(report.Unplaced),
	})
	if len(report.Duplicates) > 0 {
		b.log.printf("Dropped duplicate entity ids on %s board: %v", b.pipeline, report.Duplicates)
	}
	for _, entry := range cleared {
		b.log.event("pending_cleared", map[string]interface{}{
			"entity_id":   entry.EntityID,
			"to_stage_id": entry.ToStageID,
		})
	}
	if b.observer != nil {
		b.observer.Rebuilt(b.pipeline, counts)
		if len(cleared) > 0 {
			b.observer.PendingChanged(b.pipeline, inFlight)
		}
	}

	return report
}

// Refresh lists the pipeline's entities from src and rebuilds the board.
func (b *Board[E]) Refresh(ctx context.Context, src Source[E]) (GroupReport, error) {
	entities, err := src.List(ctx, b.pipeline)
	if err != nil {
		return GroupReport{}, fmt.Errorf("failed to list %s entities: %w", b.pipeline, err)
	}
	return b.Rebuild(entities), nil
}

// Snapshot returns a copy of the board for presentation.
func (b *Board[E]) Snapshot() Snapshot {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()

	snap := Snapshot{
		Pipeline: b.pipeline,
		Columns:  make([]Column, len(b.stages)),
		Pending:  b.pending.IDs(),
	}
	for i, s := range b.stages {
		snap.Columns[i] = Column{Stage: s, EntityIDs: b.core.state.Bucket(s.ID)}
	}
	return snap
}

// Entity returns the board's current value for an entity, including any
// optimistic stage change.
func (b *Board[E]) Entity(entityID string) (E, bool) {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	e, ok := b.core.entities[entityID]
	return e, ok
}

// StageOf returns the stage currently holding the entity.
func (b *Board[E]) StageOf(entityID string) (string, bool) {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	return b.core.state.StageOf(entityID)
}

// PendingIDs returns the entities with a commit in flight, sorted.
func (b *Board[E]) PendingIDs() []string {
	return b.pending.IDs()
}

// IsPending reports whether the entity has a commit in flight.
func (b *Board[E]) IsPending(entityID string) bool {
	return b.pending.Contains(entityID)
}

// Check verifies the partition invariant of the board's state.
func (b *Board[E]) Check() error {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	if err := b.core.state.Check(); err != nil {
		return err
	}
	if len(b.core.entities) != b.core.state.Len() {
		return fmt.Errorf("board knows %d entities but places %d", len(b.core.entities), b.core.state.Len())
	}
	return nil
}

// PointerDown arms a drag session on an entity.
func (b *Board[E]) PointerDown(entityID string, x, y float64) error {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()

	if b.session != nil && b.session.Live() {
		return ErrSessionActive
	}
	s := NewDragSession(b.activation, b.core.state.StageOf)
	if err := s.PointerDown(entityID, x, y); err != nil {
		return err
	}
	b.session = s
	return nil
}

// PointerMove feeds a pointer position to the armed session and reports
// whether it is dragging.
func (b *Board[E]) PointerMove(x, y float64) (bool, error) {
	b.core.mu.Lock()
	if b.session == nil {
		b.core.mu.Unlock()
		return false, ErrNoSession
	}
	was := b.session.Status()
	dragging, err := b.session.PointerMove(x, y)
	state := b.session.State()
	b.core.mu.Unlock()

	if err == nil && dragging && was != DragDragging {
		b.logDragStarted(state)
	}
	return dragging, err
}

// BeginDrag starts a drag immediately, skipping the activation distance.
func (b *Board[E]) BeginDrag(entityID string) error {
	b.core.mu.Lock()
	s := b.session
	if s == nil || !s.Live() {
		s = NewDragSession(b.activation, b.core.state.StageOf)
	}
	if err := s.Begin(entityID); err != nil {
		b.core.mu.Unlock()
		return err
	}
	b.session = s
	state := s.State()
	b.core.mu.Unlock()

	b.logDragStarted(state)
	return nil
}

// DragOver records the stage under the pointer; "" means no valid target.
func (b *Board[E]) DragOver(stageID string) error {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	return b.session.Over(stageID)
}

// CancelDrag abandons the current gesture, if any.
func (b *Board[E]) CancelDrag() {
	b.core.mu.Lock()
	s := b.session
	b.session = nil
	b.core.mu.Unlock()

	if s != nil && s.Live() {
		s.Cancel()
		state := s.State()
		b.log.event("drag_noop", map[string]interface{}{
			"entity_id": state.EntityID,
			"cancelled": true,
		})
	}
}

// Session returns the current drag session, if one is live.
func (b *Board[E]) Session() (DragState, bool) {
	b.core.mu.Lock()
	defer b.core.mu.Unlock()
	if b.session == nil || !b.session.Live() {
		return DragState{}, false
	}
	return b.session.State(), true
}

// Drop ends the current gesture. The returned result is OutcomeNoOp,
// OutcomeRejected, or OutcomePending when a commit was issued; the commit's
// resolution is reported to the result handler and observer.
func (b *Board[E]) Drop(ctx context.Context) (TransitionResult, error) {
	b.core.mu.Lock()
	s := b.session
	if s == nil {
		b.core.mu.Unlock()
		return TransitionResult{}, ErrNoSession
	}
	c, noop, err := s.Drop()
	if err != nil {
		b.core.mu.Unlock()
		return TransitionResult{}, err
	}
	b.session = nil

	if noop {
		state := s.State()
		b.core.mu.Unlock()
		result := TransitionResult{
			EntityID:    state.EntityID,
			FromStageID: state.OriginStageID,
			ToStageID:   state.CandidateStageID,
			Outcome:     OutcomeNoOp,
		}
		b.finish(ctx, result, Decision{NoOp: true}, nil)
		return result, nil
	}

	result, d, t := b.submitLocked(c)
	s.Resolve()
	b.core.mu.Unlock()

	b.finish(ctx, result, d, t)
	return result, nil
}

// RequestTransition moves an entity without a drag gesture, e.g. from a
// keyboard action or the CLI. It returns as soon as the commit is issued.
func (b *Board[E]) RequestTransition(ctx context.Context, entityID, toStageID string) TransitionResult {
	result, _ := b.request(ctx, entityID, toStageID)
	return result
}

// Move is RequestTransition followed by waiting for the commit to resolve.
// If ctx ends first the pending result is returned and the commit carries on.
func (b *Board[E]) Move(ctx context.Context, entityID, toStageID string) TransitionResult {
	result, t := b.request(ctx, entityID, toStageID)
	if t == nil {
		return result
	}
	select {
	case final := <-t.done:
		return final
	case <-ctx.Done():
		return result
	}
}

func (b *Board[E]) request(ctx context.Context, entityID, toStageID string) (TransitionResult, *ticket[E]) {
	b.core.mu.Lock()
	from, _ := b.core.state.StageOf(entityID)
	result, d, t := b.submitLocked(Candidate{EntityID: entityID, FromStageID: from, ToStageID: toStageID})
	b.core.mu.Unlock()

	b.finish(ctx, result, d, t)
	return result, t
}

// submitLocked validates a candidate and, if admitted, applies it.
// The origin is re-read from the current state so that a rebuild during the
// gesture is honoured. The caller must hold core.mu.
func (b *Board[E]) submitLocked(c Candidate) (TransitionResult, Decision, *ticket[E]) {
	if at, ok := b.core.state.StageOf(c.EntityID); ok {
		c.FromStageID = at
	}
	result := TransitionResult{EntityID: c.EntityID, FromStageID: c.FromStageID, ToStageID: c.ToStageID}

	d := b.validator.Validate(c, b.core.state, func(id string) (E, bool) {
		e, ok := b.core.entities[id]
		return e, ok
	})
	switch {
	case d.NoOp:
		result.Outcome = OutcomeNoOp
		return result, d, nil
	case !d.Admitted:
		result.Outcome = OutcomeRejected
		result.Reason = d.Reason
		result.ErrorMessage = d.Err.Error()
		return result, d, nil
	}

	t, err := b.mutator.apply(c)
	if err != nil {
		// Unreachable while validation and apply share the lock.
		result.Outcome = OutcomeRejected
		result.Reason = ReasonEntityBusy
		result.ErrorMessage = err.Error()
		return result, Decision{Reason: ReasonEntityBusy, Err: err}, nil
	}
	result.Outcome = OutcomePending
	return result, d, t
}

// finish performs the side effects of a submission outside the lock.
func (b *Board[E]) finish(ctx context.Context, r TransitionResult, d Decision, t *ticket[E]) {
	data := map[string]interface{}{
		"entity_id":     r.EntityID,
		"from_stage_id": r.FromStageID,
		"to_stage_id":   r.ToStageID,
	}

	switch r.Outcome {
	case OutcomePending:
		b.log.event("transition_pending", data)
		if b.observer != nil {
			b.observer.PendingChanged(b.pipeline, b.pending.Len())
		}
		b.mutator.launch(ctx, t)
		return

	case OutcomeNoOp:
		b.log.event("drag_noop", data)

	case OutcomeRejected:
		data["reason"] = string(r.Reason)
		data["error"] = r.ErrorMessage
		switch {
		case errors.Is(d.Err, ErrEntityBusy):
			b.log.eventAt("debug", "transition_rejected", data)
		case errors.Is(d.Err, ErrForbidden):
			b.log.event("transition_rejected", data)
			b.errors.Publish(fmt.Sprintf("cannot move %s from %s to %s: %v",
				r.EntityID, b.core.label(r.FromStageID), b.core.label(r.ToStageID), d.Err))
		default:
			b.log.printf("Rejected transition of %q on %s board: %v", r.EntityID, b.pipeline, d.Err)
			b.log.event("transition_rejected", data)
		}
	}

	if b.observer != nil {
		b.observer.TransitionObserved(b.pipeline, r, 0)
	}
	if b.handler != nil {
		b.handler(r)
	}
}

func (b *Board[E]) logDragStarted(s DragState) {
	b.log.event("drag_started", map[string]interface{}{
		"entity_id":       s.EntityID,
		"origin_stage_id": s.OriginStageID,
	})
}

// Wait blocks until every in-flight commit has resolved and every call to
// the Committer has returned, including calls that outlived the commit timeout.
func (b *Board[E]) Wait() {
	b.mutator.Wait()
}
