// Package daemon keeps the pipeline boards in sync with the entity store.
//
// A Syncer loads every lane once at start, then refreshes:
//   - the affected lane whenever the store publishes an entity event;
//   - every lane on the configured cron schedule, which also repairs any
//     events lost by at-most-once pub/sub delivery.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/dyluth/lanes/internal/crm"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/robfig/cron/v3"
)

// Refresh triggers, used as the metrics "trigger" label.
const (
	TriggerStartup = "startup"
	TriggerCron    = "cron"
	TriggerEvent   = "event"
)

// RefreshRecorder receives the result of every refresh.
type RefreshRecorder interface {
	RefreshObserved(p pipeline.PipelineType, trigger string, err error)
}

// Syncer drives refreshes of a set of lanes.
type Syncer struct {
	lanes    map[pipeline.PipelineType]crm.Lane
	notifier store.Notifier
	schedule string
	recorder RefreshRecorder
	logger   *log.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithNotifier enables event-driven refreshes.
func WithNotifier(n store.Notifier) SyncerOption {
	return func(s *Syncer) { s.notifier = n }
}

// WithRefreshRecorder reports every refresh to r.
func WithRefreshRecorder(r RefreshRecorder) SyncerOption {
	return func(s *Syncer) { s.recorder = r }
}

// WithSyncLogger sets the destination for sync log lines.
func WithSyncLogger(l *log.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a syncer. schedule is a standard cron expression or
// descriptor such as "@every 30s"; empty disables scheduled refreshes.
func NewSyncer(lanes map[pipeline.PipelineType]crm.Lane, schedule string, opts ...SyncerOption) (*Syncer, error) {
	if len(lanes) == 0 {
		return nil, fmt.Errorf("no lanes to sync")
	}
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
		}
	}
	s := &Syncer{
		lanes:    lanes,
		schedule: schedule,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Refresh reloads one lane. Pipelines without a lane are ignored.
func (s *Syncer) Refresh(ctx context.Context, p pipeline.PipelineType, trigger string) error {
	lane, ok := s.lanes[p]
	if !ok {
		return nil
	}

	report, err := lane.Refresh(ctx)
	if s.recorder != nil {
		s.recorder.RefreshObserved(p, trigger, err)
	}
	if err != nil {
		s.logger.Printf("[Sync] Refresh of %s failed (%s): %v", p, trigger, err)
		return err
	}
	if !report.Empty() {
		s.logger.Printf("[Sync] %s: %d entities placed in first stage, %d duplicates dropped, %d unplaced",
			p, len(report.Fallback), len(report.Duplicates), len(report.Unplaced))
	}
	return nil
}

// RefreshAll reloads every lane and joins the errors.
func (s *Syncer) RefreshAll(ctx context.Context, trigger string) error {
	var errs []error
	for _, p := range s.pipelines() {
		if err := s.Refresh(ctx, p, trigger); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Run performs the initial load and then keeps the lanes in sync until ctx
// is cancelled. On return every in-flight commit has resolved.
func (s *Syncer) Run(ctx context.Context) error {
	defer s.wait()

	if err := s.RefreshAll(ctx, TriggerStartup); err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}
	s.logger.Printf("[Sync] Loaded %d pipelines", len(s.lanes))

	if s.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.schedule, func() {
			s.RefreshAll(ctx, TriggerCron)
		}); err != nil {
			return fmt.Errorf("failed to schedule refresh: %w", err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		s.logger.Printf("[Sync] Scheduled refresh %q", s.schedule)
	}

	if s.notifier == nil {
		<-ctx.Done()
		s.logger.Printf("[Sync] Shutting down...")
		return nil
	}

	sub, err := s.notifier.SubscribeEntityEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to entity events: %w", err)
	}
	defer sub.Close()
	s.logger.Printf("[Sync] Subscribed to entity events")

	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("[Sync] Shutting down...")
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				s.logger.Printf("[Sync] Subscription closed")
				return nil
			}
			s.handleEvent(ctx, ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Printf("[Sync] Subscription error: %v", err)
		}
	}
}

func (s *Syncer) handleEvent(ctx context.Context, ev *store.EntityEvent) {
	p := pipeline.PipelineType(ev.Record.Pipeline)
	s.Refresh(ctx, p, TriggerEvent)

	// An entity that changed pipeline also left the old board
	if ev.FromPipeline != "" && ev.FromPipeline != ev.Record.Pipeline {
		s.Refresh(ctx, pipeline.PipelineType(ev.FromPipeline), TriggerEvent)
	}
}

func (s *Syncer) wait() {
	for _, l := range s.lanes {
		l.Wait()
	}
}

func (s *Syncer) pipelines() []pipeline.PipelineType {
	out := make([]pipeline.PipelineType, 0, len(s.lanes))
	for p := range s.lanes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
