package pipeline

import (
	"fmt"
)

// State maps every stage of one pipeline to the ordered ids of the entities
// currently in it. Every known entity is in exactly one bucket.
//
// State is not safe for concurrent use on its own; Board guards it.
type State struct {
	order    []string            // stage ids in ordinal order
	buckets  map[string][]string // stage id -> entity ids
	location map[string]string   // entity id -> stage id
}

func newState(stages []Stage) *State {
	s := &State{
		order:    make([]string, len(stages)),
		buckets:  make(map[string][]string, len(stages)),
		location: make(map[string]string),
	}
	for i, st := range stages {
		s.order[i] = st.ID
		s.buckets[st.ID] = nil
	}
	return s
}

// StageOf returns the stage currently holding the entity.
func (s *State) StageOf(entityID string) (string, bool) {
	id, ok := s.location[entityID]
	return id, ok
}

// Bucket returns a copy of the entity ids in a stage.
func (s *State) Bucket(stageID string) []string {
	b := s.buckets[stageID]
	out := make([]string, len(b))
	copy(out, b)
	return out
}

// HasStage reports whether the stage id is part of this state.
func (s *State) HasStage(stageID string) bool {
	_, ok := s.buckets[stageID]
	return ok
}

// StageIDs returns the stage ids in ordinal order.
func (s *State) StageIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of entities on the board.
func (s *State) Len() int {
	return len(s.location)
}

// Counts returns the number of entities per stage.
func (s *State) Counts() map[string]int {
	out := make(map[string]int, len(s.order))
	for _, id := range s.order {
		out[id] = len(s.buckets[id])
	}
	return out
}

func (s *State) insert(entityID, stageID string) {
	s.buckets[stageID] = append(s.buckets[stageID], entityID)
	s.location[entityID] = stageID
}

func (s *State) remove(entityID string) {
	stageID, ok := s.location[entityID]
	if !ok {
		return
	}
	b := s.buckets[stageID]
	for i, id := range b {
		if id == entityID {
			s.buckets[stageID] = append(b[:i:i], b[i+1:]...)
			break
		}
	}
	delete(s.location, entityID)
}

// move appends the entity to the end of the target bucket.
func (s *State) move(entityID, toStageID string) {
	s.remove(entityID)
	s.insert(entityID, toStageID)
}

// replace swaps in the contents of other so that holders of s see the rebuild.
func (s *State) replace(other *State) {
	s.order = other.order
	s.buckets = other.buckets
	s.location = other.location
}

func (s *State) clone() *State {
	c := &State{
		order:    make([]string, len(s.order)),
		buckets:  make(map[string][]string, len(s.buckets)),
		location: make(map[string]string, len(s.location)),
	}
	copy(c.order, s.order)
	for k, v := range s.buckets {
		c.buckets[k] = append([]string(nil), v...)
	}
	for k, v := range s.location {
		c.location[k] = v
	}
	return c
}

// Check verifies the partition invariant: each entity appears in exactly one
// bucket and the location index agrees with the buckets.
func (s *State) Check() error {
	seen := make(map[string]string, len(s.location))
	for _, stageID := range s.order {
		for _, id := range s.buckets[stageID] {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("entity %q appears in stages %q and %q", id, prev, stageID)
			}
			seen[id] = stageID
		}
	}
	if len(s.buckets) != len(s.order) {
		return fmt.Errorf("state has %d buckets for %d stages", len(s.buckets), len(s.order))
	}
	if len(seen) != len(s.location) {
		return fmt.Errorf("state holds %d entities in buckets but indexes %d", len(seen), len(s.location))
	}
	for id, stageID := range s.location {
		if seen[id] != stageID {
			return fmt.Errorf("entity %q indexed in %q but bucketed in %q", id, stageID, seen[id])
		}
	}
	return nil
}

// Column is one stage of a Snapshot.
type Column struct {
	Stage     Stage    `json:"stage"`
	EntityIDs []string `json:"entity_ids"`
}

// Snapshot is an immutable copy of a board for presentation.
type Snapshot struct {
	Pipeline PipelineType `json:"pipeline"`
	Columns  []Column     `json:"columns"`
	Pending  []string     `json:"pending,omitempty"`
}

// Bucket returns the entity ids of one stage, or nil if the stage is unknown.
func (s Snapshot) Bucket(stageID string) []string {
	for _, c := range s.Columns {
		if c.Stage.ID == stageID {
			return c.EntityIDs
		}
	}
	return nil
}

// Count returns the total number of entities across all columns.
func (s Snapshot) Count() int {
	n := 0
	for _, c := range s.Columns {
		n += len(c.EntityIDs)
	}
	return n
}
