package pipeline

import (
	"fmt"
	"sort"
)

// Registry holds the stage definitions of every configured pipeline type.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	stages map[PipelineType][]Stage
}

// NewRegistry validates the stage sets and returns a registry holding an
// ordinal-ordered copy of each.
// Each pipeline needs at least one stage, unique stage ids, unique ordinals
// and non-empty labels.
func NewRegistry(sets map[PipelineType][]Stage) (*Registry, error) {
	r := &Registry{stages: make(map[PipelineType][]Stage, len(sets))}

	for p, stages := range sets {
		if p == "" {
			return nil, fmt.Errorf("%w: pipeline type cannot be empty", ErrInvalidConfiguration)
		}
		if len(stages) == 0 {
			return nil, fmt.Errorf("%w: pipeline %q has no stages", ErrInvalidConfiguration, p)
		}

		ids := make(map[string]bool, len(stages))
		ordinals := make(map[int]string, len(stages))
		for _, s := range stages {
			if s.ID == "" {
				return nil, fmt.Errorf("%w: pipeline %q has a stage with an empty id", ErrInvalidConfiguration, p)
			}
			if s.Label == "" {
				return nil, fmt.Errorf("%w: stage %q in pipeline %q has an empty label", ErrInvalidConfiguration, s.ID, p)
			}
			if ids[s.ID] {
				return nil, fmt.Errorf("%w: duplicate stage id %q in pipeline %q", ErrInvalidConfiguration, s.ID, p)
			}
			if other, ok := ordinals[s.Ordinal]; ok {
				return nil, fmt.Errorf("%w: stages %q and %q in pipeline %q share ordinal %d",
					ErrInvalidConfiguration, other, s.ID, p, s.Ordinal)
			}
			ids[s.ID] = true
			ordinals[s.Ordinal] = s.ID
		}

		sorted := make([]Stage, len(stages))
		copy(sorted, stages)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })
		r.stages[p] = sorted
	}

	return r, nil
}

// Pipelines returns the configured pipeline types in lexical order.
func (r *Registry) Pipelines() []PipelineType {
	out := make([]PipelineType, 0, len(r.stages))
	for p := range r.stages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stages returns a fresh copy of the pipeline's stages in ordinal order.
func (r *Registry) Stages(p PipelineType) ([]Stage, error) {
	stages, ok := r.stages[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, p)
	}
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out, nil
}

// Stage looks up one stage by id.
func (r *Registry) Stage(p PipelineType, id string) (Stage, error) {
	stages, ok := r.stages[p]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknownPipeline, p)
	}
	for _, s := range stages {
		if s.ID == id {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("%w: %q in pipeline %q", ErrUnknownStage, id, p)
}
