package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingEntry describes one in-flight commit.
type PendingEntry struct {
	EntityID    string
	Token       string // Identifies this commit cycle; a resolution with another token is stale
	FromStageID string
	ToStageID   string
	StartedAt   time.Time
}

// PendingSet holds the entities with an outstanding commit.
// An entity is added at most once and removed exactly once per commit cycle.
type PendingSet struct {
	mu      sync.Mutex
	entries map[string]PendingEntry
}

// NewPendingSet creates an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{entries: make(map[string]PendingEntry)}
}

// Add registers a commit for the entity and returns its entry.
// Returns ErrEntityBusy if the entity already has one.
func (p *PendingSet) Add(entityID, fromStageID, toStageID string) (PendingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.entries[entityID]; busy {
		return PendingEntry{}, fmt.Errorf("%w: %q", ErrEntityBusy, entityID)
	}
	entry := PendingEntry{
		EntityID:    entityID,
		Token:       uuid.NewString(),
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		StartedAt:   time.Now(),
	}
	p.entries[entityID] = entry
	return entry, nil
}

// Remove ends the commit cycle identified by token.
// Returns false if the entity has no entry or the entry belongs to another cycle.
func (p *PendingSet) Remove(entityID, token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[entityID]
	if !ok || entry.Token != token {
		return false
	}
	delete(p.entries, entityID)
	return true
}

// Clear drops the entity's entry regardless of token.
func (p *PendingSet) Clear(entityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[entityID]; !ok {
		return false
	}
	delete(p.entries, entityID)
	return true
}

// Contains reports whether the entity has a commit in flight.
func (p *PendingSet) Contains(entityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[entityID]
	return ok
}

// Get returns the entity's entry.
func (p *PendingSet) Get(entityID string) (PendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[entityID]
	return e, ok
}

// Len returns the number of in-flight commits.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// IDs returns the pending entity ids, sorted.
func (p *PendingSet) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
