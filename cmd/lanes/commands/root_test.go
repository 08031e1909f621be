package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/lanes/internal/boardview"
	"github.com/dyluth/lanes/internal/printer"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the real root command with args and returns everything
// written to stdout by cobra and the printer.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	oldOut, oldErr := printer.Stdout, printer.Stderr
	printer.Stdout, printer.Stderr = out, &bytes.Buffer{}
	defer func() { printer.Stdout, printer.Stderr = oldOut, oldErr }()

	seedStage, seedID = "", ""
	forceInit = false
	boardOutputFormat = "text"

	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, err := execute(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:", "Help should be displayed")
	assert.Contains(t, out, "lanes", "Help should show command name")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	_, err := execute(t, "--title", "Globex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag: --title")
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-01-01)", rootCmd.Version)
}

func TestStagesCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "stages", "mandate")
	require.NoError(t, err)
	assert.Contains(t, out, "mandate\n")
	assert.Contains(t, out, "due_diligence")
	assert.Contains(t, out, "(closed)")
	assert.NotContains(t, out, "lead\n")

	_, err = execute(t, "stages", "vendor")
	assert.EqualError(t, err, "unknown pipeline 'vendor'")
}

func TestBoardWorkflow(t *testing.T) {
	t.Chdir(t.TempDir())
	mr := miniredis.RunT(t)
	conn := []string{"--redis-url", "redis://" + mr.Addr(), "--instance", "cli-test"}
	with := func(args ...string) []string { return append(args, conn...) }

	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "cli-test")
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	id := uuid.New().String()

	t.Run("seed", func(t *testing.T) {
		out, err := execute(t, with("seed", "lead", "--title", "Globex", "--id", id, "--attr", "company=Globex Corp")...)
		require.NoError(t, err)
		assert.Contains(t, out, `Created lead "Globex" in New`)

		stored, err := client.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "new", stored.StageID)
		assert.Equal(t, "Globex Corp", stored.Attr("company"))
	})

	t.Run("seed rejects unknown stage", func(t *testing.T) {
		_, err := execute(t, with("seed", "lead", "--title", "Initech", "--stage", "limbo")...)
		assert.EqualError(t, err, "unknown stage 'limbo'")
	})

	t.Run("board json", func(t *testing.T) {
		out, err := execute(t, with("board", "lead", "--output", "json")...)
		require.NoError(t, err)

		var view boardview.View
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, 1, view.Total)
		require.Len(t, view.Columns[0].Cards, 1)
		assert.Equal(t, "Globex Corp", view.Columns[0].Cards[0].Subtitle)
	})

	t.Run("move commits", func(t *testing.T) {
		out, err := execute(t, with("move", "lead", id[:8], "qualified")...)
		require.NoError(t, err)
		assert.Contains(t, out, "moved from New to Qualified")

		stored, err := client.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "qualified", stored.StageID)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("move to the same stage is a noop", func(t *testing.T) {
		out, err := execute(t, with("move", "lead", id, "qualified")...)
		require.NoError(t, err)
		assert.Contains(t, out, "already in Qualified")
	})

	t.Run("move to an unknown stage is rejected", func(t *testing.T) {
		_, err := execute(t, with("move", "lead", id, "limbo")...)
		assert.EqualError(t, err, "Move rejected: invalid_reference")
	})

	t.Run("move of an unknown entity", func(t *testing.T) {
		_, err := execute(t, with("move", "lead", "ffffffff", "won")...)
		assert.EqualError(t, err, "entity 'ffffffff' not found")
	})

	t.Run("list and get", func(t *testing.T) {
		out, err := execute(t, with("list", "lead", "--stage", "qual*")...)
		require.NoError(t, err)
		assert.Contains(t, out, id[:8])
		assert.Contains(t, out, "1 lead entity")

		out, err = execute(t, with("get", id)...)
		require.NoError(t, err)
		assert.Contains(t, out, `"stage_id": "qualified"`)

		_, err = execute(t, with("get", uuid.New().String())...)
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("board text", func(t *testing.T) {
		out, err := execute(t, with("board", "lead")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Qualified (1)")
		assert.Contains(t, out, "Globex")
	})
}

func TestStoreConnectionFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "board", "lead", "--redis-url", "redis://localhost:9", "--instance", "nowhere")
	assert.EqualError(t, err, "store connection failed")
}

func TestInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lanes.yml")

	_, err = execute(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")

	_, err = execute(t, "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "stages", "target")
	require.NoError(t, err)
	assert.Contains(t, out, "NDA Signed")
}
