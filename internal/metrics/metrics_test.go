package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryObserver(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())

	r.TransitionObserved(pipeline.PipelineLead, pipeline.TransitionResult{Outcome: pipeline.OutcomeCommitted}, 40*time.Millisecond)
	r.TransitionObserved(pipeline.PipelineLead, pipeline.TransitionResult{
		Outcome: pipeline.OutcomeRejected,
		Reason:  pipeline.ReasonEntityBusy,
	}, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Transitions.WithLabelValues("lead", "committed", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Transitions.WithLabelValues("lead", "rejected", "entity_busy")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.CommitDuration), "rejections are not timed")

	r.PendingChanged(pipeline.PipelineMandate, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.PendingCommits.WithLabelValues("mandate")))

	r.Rebuilt(pipeline.PipelineTarget, map[string]int{"identified": 4, "nda": 1})
	assert.Equal(t, 4.0, testutil.ToFloat64(r.BoardEntities.WithLabelValues("target", "identified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Rebuilds.WithLabelValues("target")))

	r.RefreshObserved(pipeline.PipelineLead, "cron", nil)
	r.RefreshObserved(pipeline.PipelineLead, "event", errors.New("redis down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("lead", "event", "error")))
}
