package crm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/lanes/internal/config"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
)

// Card is the presentation view of any board entity.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	StageID  string `json:"stage_id"`
	Version  int64  `json:"version"`
}

// Lane is a board bound to one pipeline type, independent of its entity type.
type Lane interface {
	Pipeline() pipeline.PipelineType
	Stages() []pipeline.Stage
	Refresh(ctx context.Context) (pipeline.GroupReport, error)
	Snapshot() pipeline.Snapshot
	Card(entityID string) (Card, bool)
	Move(ctx context.Context, entityID, toStageID string) pipeline.TransitionResult
	Errors() *pipeline.ErrorChannel
	Wait()
}

// LaneOptions configures every lane built by NewLanes.
type LaneOptions struct {
	CommitTimeout      time.Duration
	ActivationDistance float64
	Logger             *log.Logger
	Observer           pipeline.Observer
	OnResult           func(pipeline.PipelineType, pipeline.TransitionResult)
}

// OptionsFromConfig maps the engine section of lanes.yml to LaneOptions.
func OptionsFromConfig(cfg *config.LanesConfig) LaneOptions {
	opts := LaneOptions{
		CommitTimeout:      pipeline.DefaultCommitTimeout,
		ActivationDistance: pipeline.DefaultActivationDistance,
	}
	if cfg.Engine != nil {
		opts.CommitTimeout = cfg.Engine.CommitTimeoutDuration()
		if cfg.Engine.ActivationDistance != nil {
			opts.ActivationDistance = *cfg.Engine.ActivationDistance
		}
	}
	return opts
}

// NewLanes builds one lane per pipeline in the registry. Lead, mandate and
// target pipelines get their typed entities; any other configured pipeline
// works on raw store records.
func NewLanes(reg *pipeline.Registry, backend store.Backend, opts LaneOptions) (map[pipeline.PipelineType]Lane, error) {
	lanes := make(map[pipeline.PipelineType]Lane)
	for _, p := range reg.Pipelines() {
		var (
			l   Lane
			err error
		)
		switch p {
		case pipeline.PipelineLead:
			l, err = newLane[Lead](p, reg, backend, LeadAdapter{}, LeadFromRecord, leadCard, opts)
		case pipeline.PipelineMandate:
			l, err = newLane[Mandate](p, reg, backend, MandateAdapter{}, MandateFromRecord, mandateCard, opts)
		case pipeline.PipelineTarget:
			l, err = newLane[Target](p, reg, backend, TargetAdapter{}, TargetFromRecord, targetCard, opts)
		default:
			l, err = newLane[store.Record](p, reg, backend, store.RecordAdapter{}, func(r store.Record) store.Record { return r }, recordCard, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build %s lane: %w", p, err)
		}
		lanes[p] = l
	}
	return lanes, nil
}

// lane binds a typed board to the record backend.
type lane[E any] struct {
	board  *pipeline.Board[E]
	source pipeline.Source[E]
	card   func(E) Card
}

func newLane[E any](
	p pipeline.PipelineType,
	reg *pipeline.Registry,
	backend store.Backend,
	adapter pipeline.Adapter[E],
	fromRecord func(store.Record) E,
	card func(E) Card,
	opts LaneOptions,
) (*lane[E], error) {
	boardOpts := []pipeline.Option{
		pipeline.WithGuard[E](TerminalGuard[E]()),
		pipeline.WithCommitTimeout(opts.CommitTimeout),
		pipeline.WithActivationDistance(opts.ActivationDistance),
	}
	if opts.Logger != nil {
		boardOpts = append(boardOpts, pipeline.WithLogger(opts.Logger))
	}
	if opts.Observer != nil {
		boardOpts = append(boardOpts, pipeline.WithObserver(opts.Observer))
	}
	if opts.OnResult != nil {
		onResult := opts.OnResult
		boardOpts = append(boardOpts, pipeline.WithResultHandler(func(r pipeline.TransitionResult) {
			onResult(p, r)
		}))
	}

	conv := recordConverter[E]{backend: backend, from: fromRecord}
	board, err := pipeline.NewBoard[E](p, reg, adapter, conv, boardOpts...)
	if err != nil {
		return nil, err
	}
	return &lane[E]{board: board, source: conv, card: card}, nil
}

func (l *lane[E]) Pipeline() pipeline.PipelineType { return l.board.Pipeline() }
func (l *lane[E]) Stages() []pipeline.Stage        { return l.board.Stages() }
func (l *lane[E]) Snapshot() pipeline.Snapshot     { return l.board.Snapshot() }
func (l *lane[E]) Errors() *pipeline.ErrorChannel  { return l.board.Errors() }
func (l *lane[E]) Wait()                           { l.board.Wait() }

func (l *lane[E]) Refresh(ctx context.Context) (pipeline.GroupReport, error) {
	return l.board.Refresh(ctx, l.source)
}

func (l *lane[E]) Card(entityID string) (Card, bool) {
	e, ok := l.board.Entity(entityID)
	if !ok {
		return Card{}, false
	}
	return l.card(e), true
}

func (l *lane[E]) Move(ctx context.Context, entityID, toStageID string) pipeline.TransitionResult {
	return l.board.Move(ctx, entityID, toStageID)
}

// recordConverter exposes a record backend as a typed Source and Committer.
type recordConverter[E any] struct {
	backend store.Backend
	from    func(store.Record) E
}

func (c recordConverter[E]) List(ctx context.Context, p pipeline.PipelineType) ([]E, error) {
	records, err := c.backend.List(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]E, len(records))
	for i, r := range records {
		out[i] = c.from(r)
	}
	return out, nil
}

func (c recordConverter[E]) CommitTransition(ctx context.Context, req pipeline.CommitRequest) (E, error) {
	r, err := c.backend.CommitTransition(ctx, req)
	if err != nil {
		var zero E
		return zero, err
	}
	return c.from(r), nil
}

func leadCard(l Lead) Card {
	return Card{ID: l.ID, Title: l.Name, Subtitle: l.Company, StageID: l.StageID, Version: l.Version}
}

func mandateCard(m Mandate) Card {
	return Card{ID: m.ID, Title: m.Title, Subtitle: m.Client, StageID: m.StageID, Version: m.Version}
}

func targetCard(t Target) Card {
	sub := ""
	if t.MandateID != "" {
		sub = "mandate " + t.MandateID
	}
	return Card{ID: t.ID, Title: t.Name, Subtitle: sub, StageID: t.StageID, Version: t.Version}
}

func recordCard(r store.Record) Card {
	return Card{ID: r.ID, Title: r.Title, StageID: r.StageID, Version: r.Version}
}
