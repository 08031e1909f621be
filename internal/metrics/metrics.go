// Package metrics provides Prometheus instrumentation for the pipeline boards.
package metrics

import (
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for the boards. It implements
// pipeline.Observer, so it can be passed straight to pipeline.WithObserver.
type Registry struct {
	Transitions    *prometheus.CounterVec
	CommitDuration *prometheus.HistogramVec
	PendingCommits *prometheus.GaugeVec
	BoardEntities  *prometheus.GaugeVec
	Rebuilds       *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lanes",
				Subsystem: "board",
				Name:      "transitions_total",
				Help:      "Total number of resolved transition requests by outcome",
			},
			[]string{"pipeline", "outcome", "reason"},
		),

		CommitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lanes",
				Subsystem: "board",
				Name:      "commit_duration_seconds",
				Help:      "Time from optimistic move to commit resolution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline", "outcome"},
		),

		PendingCommits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lanes",
				Subsystem: "board",
				Name:      "pending_commits",
				Help:      "Number of commits currently in flight",
			},
			[]string{"pipeline"},
		),

		BoardEntities: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lanes",
				Subsystem: "board",
				Name:      "entities",
				Help:      "Number of entities per stage after the last rebuild",
			},
			[]string{"pipeline", "stage"},
		),

		Rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lanes",
				Subsystem: "board",
				Name:      "rebuilds_total",
				Help:      "Total number of board rebuilds from authoritative data",
			},
			[]string{"pipeline"},
		),

		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lanes",
				Subsystem: "sync",
				Name:      "refreshes_total",
				Help:      "Total number of board refreshes by trigger and result",
			},
			[]string{"pipeline", "trigger", "result"},
		),
	}
}

// TransitionObserved records a final transition result.
func (r *Registry) TransitionObserved(p pipeline.PipelineType, res pipeline.TransitionResult, elapsed time.Duration) {
	reason := string(res.Reason)
	if reason == "" {
		reason = "none"
	}
	r.Transitions.WithLabelValues(string(p), string(res.Outcome), reason).Inc()

	switch res.Outcome {
	case pipeline.OutcomeCommitted, pipeline.OutcomeRolledBack, pipeline.OutcomeConflicted:
		r.CommitDuration.WithLabelValues(string(p), string(res.Outcome)).Observe(elapsed.Seconds())
	}
}

// PendingChanged records the number of in-flight commits.
func (r *Registry) PendingChanged(p pipeline.PipelineType, inFlight int) {
	r.PendingCommits.WithLabelValues(string(p)).Set(float64(inFlight))
}

// Rebuilt records per-stage entity counts.
func (r *Registry) Rebuilt(p pipeline.PipelineType, counts map[string]int) {
	r.Rebuilds.WithLabelValues(string(p)).Inc()
	for stage, n := range counts {
		r.BoardEntities.WithLabelValues(string(p), stage).Set(float64(n))
	}
}

// RefreshObserved records one refresh attempt.
func (r *Registry) RefreshObserved(p pipeline.PipelineType, trigger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Refreshes.WithLabelValues(string(p), trigger, result).Inc()
}

var _ pipeline.Observer = (*Registry)(nil)
