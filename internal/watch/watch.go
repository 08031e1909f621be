// Package watch streams entity events from the store to a terminal or a
// line-delimited JSON consumer.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps and emojis
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON is line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// StageLabeler resolves a stage ID to its display label.
type StageLabeler func(p pipeline.PipelineType, stageID string) string

// RegistryLabeler labels stages from reg, falling back to the raw ID.
func RegistryLabeler(reg *pipeline.Registry) StageLabeler {
	return func(p pipeline.PipelineType, stageID string) string {
		if s, err := reg.Stage(p, stageID); err == nil {
			return s.Label
		}
		return stageID
	}
}

// Filter restricts the stream. Zero value passes everything.
type Filter struct {
	Pipeline pipeline.PipelineType
}

func (f Filter) matches(ev *store.EntityEvent) bool {
	if f.Pipeline == "" {
		return true
	}
	return pipeline.PipelineType(ev.Record.Pipeline) == f.Pipeline ||
		pipeline.PipelineType(ev.FromPipeline) == f.Pipeline
}

type formatter interface {
	Format(ev *store.EntityEvent) error
}

func newFormatter(format OutputFormat, w io.Writer, label StageLabeler) formatter {
	if format == OutputFormatJSON {
		return &jsonFormatter{encoder: json.NewEncoder(w)}
	}
	if label == nil {
		label = func(_ pipeline.PipelineType, id string) string { return id }
	}
	return &defaultFormatter{writer: w, label: label}
}

// StreamEntityEvents writes every matching event until ctx is cancelled or
// the subscription closes.
func StreamEntityEvents(ctx context.Context, n store.Notifier, format OutputFormat, filter Filter, w io.Writer, label StageLabeler) error {
	sub, err := n.SubscribeEntityEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	f := newFormatter(format, w, label)
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !filter.matches(ev) {
				continue
			}
			if err := f.Format(ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)
		}
	}
}

type defaultFormatter struct {
	writer io.Writer
	label  StageLabeler
}

func (f *defaultFormatter) Format(ev *store.EntityEvent) error {
	r := ev.Record
	p := pipeline.PipelineType(r.Pipeline)
	ts := time.UnixMilli(r.UpdatedAtMs).Format("15:04:05")
	name := fmt.Sprintf("%s %q (%s)", r.Pipeline, r.Title, r.ID)

	var line string
	switch ev.Kind {
	case store.EventCreated:
		line = fmt.Sprintf("✨ Created %s in %s", name, f.label(p, r.StageID))
	case store.EventTransitioned:
		line = fmt.Sprintf("🔀 Moved %s: %s → %s (v%d)", name, f.label(p, ev.FromStageID), f.label(p, r.StageID), r.Version)
	case store.EventUpdated:
		line = fmt.Sprintf("✏️  Updated %s in %s (v%d)", name, f.label(p, r.StageID), r.Version)
		if ev.FromPipeline != "" {
			line += fmt.Sprintf(", moved from pipeline %s", ev.FromPipeline)
		}
	case store.EventDeleted:
		line = fmt.Sprintf("🗑️  Deleted %s", name)
	default:
		line = fmt.Sprintf("❓ %s %s", ev.Kind, name)
	}

	_, err := fmt.Fprintf(f.writer, "[%s] %s\n", ts, line)
	return err
}

type jsonFormatter struct {
	encoder *json.Encoder
}

func (f *jsonFormatter) Format(ev *store.EntityEvent) error {
	return f.encoder.Encode(ev)
}
