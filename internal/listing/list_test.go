package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/lanes/internal/timespec"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(s string) string { return s }

func setupClient(t *testing.T) *store.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "listing-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestList(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	seed := []store.Record{
		{ID: uuid.New().String(), Pipeline: "lead", StageID: "new", Title: "Globex"},
		{ID: uuid.New().String(), Pipeline: "lead", StageID: "won", Title: "Initech"},
		{ID: uuid.New().String(), Pipeline: "lead", StageID: "new", Title: "Hooli"},
		{ID: uuid.New().String(), Pipeline: "mandate", StageID: "signed", Title: "Sell Hooli"},
	}
	for _, r := range seed {
		_, err := client.Put(ctx, r)
		require.NoError(t, err)
	}

	t.Run("table in creation order", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, List(ctx, client, pipeline.PipelineLead, OutputFormatDefault, Filter{}, identity, buf))

		out := buf.String()
		assert.Contains(t, out, "3 lead entities")
		assert.Less(t, strings.Index(out, "Globex"), strings.Index(out, "Hooli"))
		assert.NotContains(t, out, "Sell Hooli")
	})

	t.Run("stage glob and title filter", func(t *testing.T) {
		buf := &bytes.Buffer{}
		filter := Filter{StageGlob: "n*", Title: "hoo"}
		require.NoError(t, List(ctx, client, pipeline.PipelineLead, OutputFormatJSONL, filter, identity, buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var r store.Record
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &r))
		assert.Equal(t, "Hooli", r.Title)
	})

	t.Run("time window", func(t *testing.T) {
		buf := &bytes.Buffer{}
		filter := Filter{Updated: timespec.Range{Until: time.Now().Add(-time.Hour)}}
		require.NoError(t, List(ctx, client, pipeline.PipelineLead, OutputFormatDefault, filter, identity, buf))
		assert.Contains(t, buf.String(), "No lead entities found")
	})

	t.Run("unknown format", func(t *testing.T) {
		err := List(ctx, client, pipeline.PipelineLead, "xml", Filter{}, identity, &bytes.Buffer{})
		assert.EqualError(t, err, "unknown output format: xml")
	})
}

func TestGet(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	stored, err := client.Put(ctx, store.Record{ID: uuid.New().String(), Pipeline: "target", StageID: "nda", Title: "Pied Piper"})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, Get(ctx, client, stored.ID, buf))
	var got store.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "nda", got.StageID)
	assert.Equal(t, int64(1), got.Version)

	err = Get(ctx, client, uuid.New().String(), &bytes.Buffer{})
	assert.True(t, IsNotFound(err))
}

func TestFormatHelpers(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", formatVersion(1))
	assert.Equal(t, "v3", formatVersion(3))
	assert.Equal(t, "3f0c2a1e", formatID("3f0c2a1e-0000-4000-8000-000000000001"))
	assert.Equal(t, "-", formatTitle("\n  \n"))
	assert.Equal(t, "second line wins", formatTitle("\nsecond line wins\nthird"))
	assert.Len(t, formatTitle(strings.Repeat("x", 60)), 40)
	assert.Equal(t, "5m ago", formatAge(now.Add(-5*time.Minute).UnixMilli(), now))
	assert.Equal(t, "2d ago", formatAge(now.Add(-50*time.Hour).UnixMilli(), now))
	assert.Equal(t, "-", formatAge(0, now))
}
