package pipeline

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// card is the entity type used by the engine tests.
type card struct {
	ID      string
	Stage   string
	Version int64
}

type cardAdapter struct{}

func (cardAdapter) ID(c card) string                      { return c.ID }
func (cardAdapter) StageID(c card) string                 { return c.Stage }
func (cardAdapter) WithStageID(c card, stage string) card { c.Stage = stage; return c }
func (cardAdapter) Version(c card) int64                  { return c.Version }

func testStages() []Stage {
	return []Stage{
		{ID: "pipeline", Label: "Pipeline", Ordinal: 1},
		{ID: "qualified", Label: "Qualified", Ordinal: 2},
		{ID: "won", Label: "Won", Ordinal: 3, Terminal: true},
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(map[PipelineType][]Stage{PipelineLead: testStages()})
	require.NoError(t, err)
	return reg
}

// commitCall is one commit observed by gatedCommitter, waiting for a reply.
type commitCall struct {
	req   CommitRequest
	reply chan commitReply
}

type commitReply struct {
	card card
	err  error
}

func (c commitCall) succeed(stage string, version int64) {
	c.reply <- commitReply{card: card{ID: c.req.EntityID, Stage: stage, Version: version}}
}

func (c commitCall) fail(err error) {
	c.reply <- commitReply{err: err}
}

// gatedCommitter blocks every commit until the test replies to it.
type gatedCommitter struct {
	calls chan commitCall
}

func newGatedCommitter() *gatedCommitter {
	return &gatedCommitter{calls: make(chan commitCall, 16)}
}

func (g *gatedCommitter) CommitTransition(ctx context.Context, req CommitRequest) (card, error) {
	call := commitCall{req: req, reply: make(chan commitReply, 1)}
	g.calls <- call
	select {
	case r := <-call.reply:
		return r.card, r.err
	case <-ctx.Done():
		return card{}, ctx.Err()
	}
}

func (g *gatedCommitter) next(t *testing.T) commitCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for commit")
		return commitCall{}
	}
}

func (g *gatedCommitter) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("Unexpected commit for %s", c.req.EntityID)
	case <-time.After(20 * time.Millisecond):
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestBoard builds a lead board holding e1 and e2 in "pipeline".
func newTestBoard(t *testing.T, committer Committer[card], opts ...Option) (*Board[card], chan TransitionResult) {
	t.Helper()
	results := make(chan TransitionResult, 32)
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithResultHandler(func(r TransitionResult) { results <- r }),
	}, opts...)

	b, err := NewBoard[card](PipelineLead, testRegistry(t), cardAdapter{}, committer, opts...)
	require.NoError(t, err)

	b.Rebuild([]card{
		{ID: "e1", Stage: "pipeline", Version: 1},
		{ID: "e2", Stage: "pipeline", Version: 1},
	})
	return b, results
}

func nextResult(t *testing.T, results chan TransitionResult) TransitionResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for transition result")
		return TransitionResult{}
	}
}

// drag performs a full begin/over/drop gesture.
func drag(t *testing.T, b *Board[card], entityID, stageID string) TransitionResult {
	t.Helper()
	require.NoError(t, b.BeginDrag(entityID))
	require.NoError(t, b.DragOver(stageID))
	r, err := b.Drop(context.Background())
	require.NoError(t, err)
	return r
}
