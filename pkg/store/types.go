package store

import (
	"errors"
	"fmt"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an entity does not exist in the requested pipeline.
var ErrNotFound = errors.New("entity not found")

// Record is the stored form of any board entity.
// Pipeline-specific fields live in Attributes.
type Record struct {
	ID          string            `json:"id"`
	Pipeline    string            `json:"pipeline"`
	StageID     string            `json:"stage_id"`
	Title       string            `json:"title"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Version     int64             `json:"version"`       // Bumped by every write
	UpdatedAtMs int64             `json:"updated_at_ms"` // Unix milliseconds of the last write
}

// Validate checks the record's required fields.
func (r *Record) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("id must be a valid UUID: %w", err)
	}
	if r.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if r.StageID == "" {
		return fmt.Errorf("stage_id is required")
	}
	if r.Version < 0 {
		return fmt.Errorf("version must be non-negative, got %d", r.Version)
	}
	return nil
}

// Attr returns one attribute, or "" if absent.
func (r Record) Attr(key string) string {
	return r.Attributes[key]
}

// EventKind identifies what happened to an entity.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventUpdated      EventKind = "updated"
	EventTransitioned EventKind = "transitioned"
	EventDeleted      EventKind = "deleted"
)

// EntityEvent is published on every store write.
type EntityEvent struct {
	Kind         EventKind `json:"kind"`
	Record       Record    `json:"record"`
	FromStageID  string    `json:"from_stage_id,omitempty"` // Set for transitioned events
	FromPipeline string    `json:"from_pipeline,omitempty"` // Set when an update moved the entity to another pipeline
}

// RecordAdapter binds Record to the transition engine.
type RecordAdapter struct{}

// ID returns the record id.
func (RecordAdapter) ID(r Record) string { return r.ID }

// StageID returns the record's stage.
func (RecordAdapter) StageID(r Record) string { return r.StageID }

// WithStageID returns a copy of r in another stage.
func (RecordAdapter) WithStageID(r Record, stageID string) Record {
	r.StageID = stageID
	return r
}

// Version returns the record's optimistic concurrency token.
func (RecordAdapter) Version(r Record) int64 { return r.Version }

var (
	_ pipeline.Adapter[Record]   = RecordAdapter{}
	_ pipeline.Versioned[Record] = RecordAdapter{}
)
