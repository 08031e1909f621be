package printer

import (
	"bytes"
	"testing"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := Stdout, Stderr
	Stdout, Stderr = stdout, stderr
	t.Cleanup(func() { Stdout, Stderr = oldOut, oldErr })
	return stdout, stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	context := map[string]string{
		"To":     "won",
		"Entity": "e1",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, stderr.String(), "  Entity: e1\n  To: won\n", "context keys are sorted")
	assert.Contains(t, stderr.String(), "Fix it\n")
}

func TestTransition(t *testing.T) {
	label := func(id string) string { return "<" + id + ">" }

	t.Run("committed", func(t *testing.T) {
		stdout, _ := capture(t)
		err := Transition(pipeline.TransitionResult{
			EntityID: "e1", FromStageID: "new", ToStageID: "won",
			Outcome: pipeline.OutcomeCommitted, FinalStageID: "won",
		}, label)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "e1 moved from <new> to <won>")
	})

	t.Run("corrected by the store", func(t *testing.T) {
		stdout, _ := capture(t)
		err := Transition(pipeline.TransitionResult{
			EntityID: "e1", FromStageID: "new", ToStageID: "qualified",
			Outcome: pipeline.OutcomeCommitted, FinalStageID: "won",
		}, label)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "e1 moved to <won> (requested <qualified>)")
	})

	t.Run("noop", func(t *testing.T) {
		stdout, _ := capture(t)
		require.NoError(t, Transition(pipeline.TransitionResult{
			EntityID: "e1", FromStageID: "new", ToStageID: "new", Outcome: pipeline.OutcomeNoOp,
		}, label))
		assert.Contains(t, stdout.String(), "already in <new>")
	})

	t.Run("rejected", func(t *testing.T) {
		_, stderr := capture(t)
		err := Transition(pipeline.TransitionResult{
			EntityID: "e1", FromStageID: "new", ToStageID: "nowhere",
			Outcome: pipeline.OutcomeRejected, Reason: pipeline.ReasonInvalidReference,
			ErrorMessage: "unknown stage",
		}, label)
		require.EqualError(t, err, "Move rejected: invalid_reference")
		assert.Contains(t, stderr.String(), "lanes stages")
	})

	t.Run("conflicted", func(t *testing.T) {
		_, stderr := capture(t)
		err := Transition(pipeline.TransitionResult{
			EntityID: "e1", Outcome: pipeline.OutcomeConflicted, Reason: pipeline.ReasonConflict,
			ErrorMessage: "conflict: version moved on",
		}, label)
		require.EqualError(t, err, "Move conflicted")
		assert.Contains(t, stderr.String(), "lanes board")
	})
}
