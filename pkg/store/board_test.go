package store_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBoardOverStore drives the engine end to end against Redis.
func TestBoardOverStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "board-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	reg, err := pipeline.NewRegistry(map[pipeline.PipelineType][]pipeline.Stage{
		pipeline.PipelineLead: {
			{ID: "new", Label: "New", Ordinal: 1},
			{ID: "qualified", Label: "Qualified", Ordinal: 2},
		},
	})
	require.NoError(t, err)

	board, err := pipeline.NewBoard[store.Record](pipeline.PipelineLead, reg, store.RecordAdapter{}, client,
		pipeline.WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	rec, err := client.Put(ctx, store.Record{ID: uuid.New().String(), Pipeline: "lead", StageID: "new", Title: "Globex"})
	require.NoError(t, err)
	_, err = board.Refresh(ctx, client)
	require.NoError(t, err)

	t.Run("commit persists the move", func(t *testing.T) {
		r := board.Move(ctx, rec.ID, "qualified")
		assert.Equal(t, pipeline.OutcomeCommitted, r.Outcome)

		got, err := client.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "qualified", got.StageID)
		assert.Equal(t, int64(2), got.Version)

		e, _ := board.Entity(rec.ID)
		assert.Equal(t, int64(2), e.Version, "board holds the authoritative version")
	})

	t.Run("concurrent remote edit conflicts and rolls back", func(t *testing.T) {
		// Someone else moves the lead; the board still holds version 2.
		_, err := client.CommitTransition(ctx, pipeline.CommitRequest{
			Pipeline: pipeline.PipelineLead, EntityID: rec.ID, ToStageID: "qualified",
		})
		require.NoError(t, err)

		r := board.Move(ctx, rec.ID, "new")
		assert.Equal(t, pipeline.OutcomeConflicted, r.Outcome)

		stage, _ := board.StageOf(rec.ID)
		assert.Equal(t, "qualified", stage)
		_, hasErr := board.Errors().Current()
		assert.True(t, hasErr)
	})
}
