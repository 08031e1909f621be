package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to LANES_TEST_DATABASE_URL in a fresh instance namespace.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LANES_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LANES_TEST_DATABASE_URL not set")
	}

	s, err := Open(context.Background(), dsn, "test-"+uuid.New().String())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RejectsEmptyInstance(t *testing.T) {
	_, err := Open(context.Background(), "postgres://unused", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance name cannot be empty")
}

func TestStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Migrate(ctx), "migration is idempotent")

	first := store.Record{ID: uuid.New().String(), Pipeline: "lead", StageID: "new", Title: "Globex",
		Attributes: map[string]string{"company": "Globex Corp"}}
	second := store.Record{ID: uuid.New().String(), Pipeline: "lead", StageID: "new", Title: "Initech"}

	t.Run("put assigns versions", func(t *testing.T) {
		stored, err := s.Put(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
		assert.Equal(t, "Globex Corp", stored.Attr("company"))

		_, err = s.Put(ctx, second)
		require.NoError(t, err)

		first.Title = "Globex Inc"
		stored, err = s.Put(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("list keeps creation order", func(t *testing.T) {
		records, err := s.List(ctx, pipeline.PipelineLead)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, first.ID, records[0].ID)
		assert.Equal(t, second.ID, records[1].ID)
	})

	t.Run("commit checks the version", func(t *testing.T) {
		updated, err := s.CommitTransition(ctx, pipeline.CommitRequest{
			Pipeline: pipeline.PipelineLead, EntityID: first.ID, ToStageID: "qualified", ExpectedVersion: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, "qualified", updated.StageID)
		assert.Equal(t, int64(3), updated.Version)

		_, err = s.CommitTransition(ctx, pipeline.CommitRequest{
			Pipeline: pipeline.PipelineLead, EntityID: first.ID, ToStageID: "won", ExpectedVersion: 2,
		})
		assert.ErrorIs(t, err, pipeline.ErrConflict)

		_, err = s.CommitTransition(ctx, pipeline.CommitRequest{
			Pipeline: pipeline.PipelineMandate, EntityID: first.ID, ToStageID: "signed",
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, second.ID))
		_, err := s.Get(ctx, second.ID)
		assert.True(t, store.IsNotFound(err))
		assert.True(t, store.IsNotFound(s.Delete(ctx, second.ID)))
	})
}
