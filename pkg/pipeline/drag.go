package pipeline

import (
	"fmt"
	"math"
)

// DefaultActivationDistance is how far the pointer must travel, in pointer
// units, before a pointer-down becomes a drag.
const DefaultActivationDistance = 8.0

// DragStatus is the lifecycle position of a DragSession.
type DragStatus string

const (
	DragIdle       DragStatus = "idle"
	DragDragging   DragStatus = "dragging"
	DragCommitting DragStatus = "committing"
	DragResolved   DragStatus = "resolved"
)

// DragState is a read-only view of a DragSession.
type DragState struct {
	Status           DragStatus `json:"status"`
	EntityID         string     `json:"entity_id,omitempty"`
	OriginStageID    string     `json:"origin_stage_id,omitempty"`
	CandidateStageID string     `json:"candidate_stage_id,omitempty"`
}

// DragSession tracks one drag gesture from pointer-down to drop.
// A session is single-use: once Resolved it cannot be restarted.
type DragSession struct {
	threshold float64
	locate    func(entityID string) (string, bool)

	status    DragStatus
	armed     bool
	entityID  string
	origin    string
	candidate string
	startX    float64
	startY    float64
}

// NewDragSession returns an idle session. locate reports the stage currently
// holding an entity. A threshold of 0 starts the drag on the first pointer
// move; a negative threshold uses DefaultActivationDistance.
func NewDragSession(threshold float64, locate func(entityID string) (string, bool)) *DragSession {
	if threshold < 0 {
		threshold = DefaultActivationDistance
	}
	return &DragSession{
		threshold: threshold,
		locate:    locate,
		status:    DragIdle,
	}
}

// PointerDown arms the session on an entity. The drag does not start until
// the pointer has moved at least the activation distance.
func (d *DragSession) PointerDown(entityID string, x, y float64) error {
	if d.status != DragIdle || d.armed {
		return ErrSessionActive
	}
	origin, ok := d.locate(entityID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entityID)
	}
	d.armed = true
	d.entityID = entityID
	d.origin = origin
	d.startX, d.startY = x, y
	return nil
}

// PointerMove reports whether the session is dragging after the move.
func (d *DragSession) PointerMove(x, y float64) (bool, error) {
	switch {
	case d.status == DragDragging:
		return true, nil
	case d.status != DragIdle || !d.armed:
		return false, ErrNoSession
	}
	if math.Hypot(x-d.startX, y-d.startY) < d.threshold {
		return false, nil
	}
	d.status = DragDragging
	return true, nil
}

// Begin activates a drag directly, for gesture layers that apply their own
// activation filter. An armed session may be activated for the same entity.
func (d *DragSession) Begin(entityID string) error {
	if d.status != DragIdle || (d.armed && d.entityID != entityID) {
		return ErrSessionActive
	}
	origin, ok := d.locate(entityID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entityID)
	}
	d.armed = true
	d.entityID = entityID
	d.origin = origin
	d.status = DragDragging
	return nil
}

// Over records the stage under the pointer. An empty id clears the target.
func (d *DragSession) Over(stageID string) error {
	if d.status != DragDragging {
		return ErrNoSession
	}
	d.candidate = stageID
	return nil
}

// Drop ends the gesture. noop is true for a click that never became a drag,
// a drop outside any stage, or a drop on the origin stage; the session is
// then Resolved. Otherwise the session moves to Committing and the returned
// candidate must be handed to the validator.
func (d *DragSession) Drop() (c Candidate, noop bool, err error) {
	if d.status == DragIdle && d.armed {
		d.status = DragResolved
		return Candidate{}, true, nil
	}
	if d.status != DragDragging {
		return Candidate{}, false, ErrNoSession
	}
	if d.candidate == "" || d.candidate == d.origin {
		d.status = DragResolved
		return Candidate{}, true, nil
	}
	d.status = DragCommitting
	return Candidate{EntityID: d.entityID, FromStageID: d.origin, ToStageID: d.candidate}, false, nil
}

// Resolve marks a committing session as finished.
func (d *DragSession) Resolve() {
	d.status = DragResolved
}

// Cancel abandons the gesture as a no-op.
func (d *DragSession) Cancel() {
	d.status = DragResolved
}

// Status returns the current lifecycle position.
func (d *DragSession) Status() DragStatus {
	return d.status
}

// Live reports whether the session is armed or in progress.
func (d *DragSession) Live() bool {
	return d.status != DragResolved && (d.armed || d.status != DragIdle)
}

// State returns a read-only view of the session.
func (d *DragSession) State() DragState {
	return DragState{
		Status:           d.status,
		EntityID:         d.entityID,
		OriginStageID:    d.origin,
		CandidateStageID: d.candidate,
	}
}
