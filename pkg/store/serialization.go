package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Record and Redis hashes.
// Attributes are JSON-encoded into a single hash field.

// RecordToHash converts a Record to Redis hash format.
func RecordToHash(r *Record) (map[string]interface{}, error) {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return map[string]interface{}{
		"id":            r.ID,
		"pipeline":      r.Pipeline,
		"stage_id":      r.StageID,
		"title":         r.Title,
		"attributes":    string(attrsJSON),
		"version":       r.Version,
		"updated_at_ms": r.UpdatedAtMs,
	}, nil
}

// HashToRecord converts a Redis hash to a Record.
func HashToRecord(hash map[string]string) (*Record, error) {
	version, err := strconv.ParseInt(hash["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version field: %w", err)
	}

	var updatedAtMs int64
	if s := hash["updated_at_ms"]; s != "" {
		updatedAtMs, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at_ms field: %w", err)
		}
	}

	attrs := map[string]string{}
	if s := hash["attributes"]; s != "" {
		if err := json.Unmarshal([]byte(s), &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}

	return &Record{
		ID:          hash["id"],
		Pipeline:    hash["pipeline"],
		StageID:     hash["stage_id"],
		Title:       hash["title"],
		Attributes:  attrs,
		Version:     version,
		UpdatedAtMs: updatedAtMs,
	}, nil
}
