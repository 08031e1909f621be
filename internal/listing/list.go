// Package listing lists and fetches stored entities for the CLI.
package listing

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/lanes/internal/timespec"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
)

// OutputFormat specifies how to format the entity list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with truncated titles
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Filter narrows a listing. All set criteria must match.
type Filter struct {
	Updated   timespec.Range // UpdatedAtMs window, zero bounds are open
	StageGlob string         // Glob pattern on stage_id, empty = no filter
	Title     string         // Case-insensitive substring of the title, empty = no filter
}

func (f Filter) matches(r store.Record) bool {
	if !f.Updated.ContainsMs(r.UpdatedAtMs) {
		return false
	}
	if f.StageGlob != "" {
		matched, err := filepath.Match(f.StageGlob, r.StageID)
		if err != nil || !matched {
			return false
		}
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(f.Title)) {
		return false
	}
	return true
}

// List writes the pipeline's entities in creation order.
func List(ctx context.Context, src pipeline.Source[store.Record], p pipeline.PipelineType, format OutputFormat, filter Filter, label func(string) string, w io.Writer) error {
	all, err := src.List(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	records := make([]store.Record, 0, len(all))
	for _, r := range all {
		if filter.matches(r) {
			records = append(records, r)
		}
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, records, string(p), label, time.Now())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, records); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// Getter fetches one record by ID.
type Getter interface {
	Get(ctx context.Context, entityID string) (store.Record, error)
}

// Get writes one entity as pretty-printed JSON.
func Get(ctx context.Context, g Getter, entityID string, w io.Writer) error {
	r, err := g.Get(ctx, entityID)
	if err != nil {
		if store.IsNotFound(err) {
			return &NotFoundError{EntityID: entityID}
		}
		return fmt.Errorf("failed to fetch entity: %w", err)
	}
	if err := FormatSingleJSON(w, r); err != nil {
		return fmt.Errorf("failed to format entity: %w", err)
	}
	return nil
}

// NotFoundError means no entity has the requested ID.
type NotFoundError struct {
	EntityID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity with ID '%s' not found", e.EntityID)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
