package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Run("orders stages by ordinal", func(t *testing.T) {
		reg, err := NewRegistry(map[PipelineType][]Stage{
			PipelineTarget: {
				{ID: "nda", Label: "NDA", Ordinal: 3},
				{ID: "identified", Label: "Identified", Ordinal: 1},
				{ID: "contacted", Label: "Contacted", Ordinal: 2},
			},
		})
		require.NoError(t, err)

		stages, err := reg.Stages(PipelineTarget)
		require.NoError(t, err)
		ids := []string{stages[0].ID, stages[1].ID, stages[2].ID}
		assert.Equal(t, []string{"identified", "contacted", "nda"}, ids)
	})

	t.Run("rejects invalid stage sets", func(t *testing.T) {
		cases := map[string][]Stage{
			"empty":             {},
			"duplicate id":      {{ID: "a", Label: "A", Ordinal: 1}, {ID: "a", Label: "A2", Ordinal: 2}},
			"duplicate ordinal": {{ID: "a", Label: "A", Ordinal: 1}, {ID: "b", Label: "B", Ordinal: 1}},
			"empty label":       {{ID: "a", Ordinal: 1}},
			"empty id":          {{Label: "A", Ordinal: 1}},
		}
		for name, stages := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := NewRegistry(map[PipelineType][]Stage{PipelineLead: stages})
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			})
		}
	})

	t.Run("returns copies", func(t *testing.T) {
		reg := testRegistry(t)
		stages, err := reg.Stages(PipelineLead)
		require.NoError(t, err)
		stages[0].Label = "Mutated"

		again, err := reg.Stages(PipelineLead)
		require.NoError(t, err)
		assert.Equal(t, "Pipeline", again[0].Label)
	})
}

func TestRegistryLookups(t *testing.T) {
	reg := testRegistry(t)

	s, err := reg.Stage(PipelineLead, "qualified")
	require.NoError(t, err)
	assert.Equal(t, "Qualified", s.Label)

	_, err = reg.Stage(PipelineLead, "lost")
	assert.ErrorIs(t, err, ErrUnknownStage)

	_, err = reg.Stages(PipelineMandate)
	assert.ErrorIs(t, err, ErrUnknownPipeline)

	_, err = reg.Stage(PipelineMandate, "signed")
	assert.ErrorIs(t, err, ErrUnknownPipeline)

	assert.Equal(t, []PipelineType{PipelineLead}, reg.Pipelines())
}
