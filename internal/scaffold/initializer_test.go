package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/lanes/internal/config"
	"github.com/dyluth/lanes/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietPrinter(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	oldOut, oldErr := printer.Stdout, printer.Stderr
	printer.Stdout, printer.Stderr = buf, buf
	t.Cleanup(func() { printer.Stdout, printer.Stderr = oldOut, oldErr })
	return buf
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		setup   func(path string)
		wantErr string
	}{
		{
			name:  "fresh initialization",
			setup: func(string) {},
		},
		{
			name:  "force replaces existing file",
			force: true,
			setup: func(path string) {
				require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))
			},
		},
		{
			name: "existing file without force",
			setup: func(path string) {
				require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))
			},
			wantErr: "failed to write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietPrinter(t)
			path := filepath.Join(t.TempDir(), "lanes.yml")
			tt.setup(path)

			err := Initialize(path, tt.force)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"lead", "mandate", "target"}, cfg.PipelineNames())
		})
	}
}

func TestInitialize_MatchesBuiltinPipelines(t *testing.T) {
	quietPrinter(t)
	path := filepath.Join(t.TempDir(), "nested", "lanes.yml")
	require.NoError(t, Initialize(path, false))

	written, err := config.Load(path)
	require.NoError(t, err)
	builtin := config.Default()

	assert.Equal(t, builtin.Pipelines, written.Pipelines)
	assert.Equal(t, builtin.Engine.CommitTimeoutDuration(), written.Engine.CommitTimeoutDuration())
	assert.Equal(t, builtin.Engine.RefreshSchedule, written.Engine.RefreshSchedule)
}

func TestPrintSuccess(t *testing.T) {
	buf := quietPrinter(t)
	PrintSuccess("lanes.yml")
	assert.Contains(t, buf.String(), "✓ lanes.yml")
	assert.Contains(t, buf.String(), "lanes stages")
}
