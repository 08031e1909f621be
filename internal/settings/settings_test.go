package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, true)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := Load(newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, &Settings{
			ConfigPath: DefaultConfigPath,
			Backend:    BackendRedis,
			RedisURL:   DefaultRedisURL,
			Instance:   DefaultInstance,
			ListenAddr: DefaultListenAddr,
		}, s)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("LANES_INSTANCE", "prod")
		t.Setenv("LANES_REDIS_URL", "redis://cache:6379/2")

		s, err := Load(newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, "prod", s.Instance)
		assert.Equal(t, "redis://cache:6379/2", s.RedisURL)
	})

	t.Run("flags override environment", func(t *testing.T) {
		t.Setenv("LANES_INSTANCE", "prod")

		s, err := Load(newFlags(t, "--instance", "staging", "--listen", ":9090"))
		require.NoError(t, err)
		assert.Equal(t, "staging", s.Instance)
		assert.Equal(t, ":9090", s.ListenAddr)
	})

	t.Run("postgres requires a DSN", func(t *testing.T) {
		_, err := Load(newFlags(t, "--backend", "postgres"))
		assert.ErrorContains(t, err, "--postgres-dsn is required")
	})

	t.Run("invalid instance name", func(t *testing.T) {
		_, err := Load(newFlags(t, "--instance", "Prod:EU"))
		assert.ErrorContains(t, err, "invalid instance name")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(newFlags(t, "--backend", "mongo"))
		assert.ErrorContains(t, err, `unknown backend "mongo"`)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing default file uses built-in pipelines", func(t *testing.T) {
		t.Chdir(t.TempDir())
		s := &Settings{ConfigPath: DefaultConfigPath}

		cfg, err := s.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"lead", "mandate", "target"}, cfg.PipelineNames())
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		s := &Settings{ConfigPath: filepath.Join(t.TempDir(), "other.yml")}
		_, err := s.LoadConfig()
		assert.ErrorContains(t, err, "failed to read config")
	})

	t.Run("reads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lanes.yml")
		require.NoError(t, os.WriteFile(path, []byte(`version: "1.0"
pipelines:
  vendor:
    stages:
      - {id: shortlist, label: Shortlist, ordinal: 1}
`), 0644))

		cfg, err := (&Settings{ConfigPath: path}).LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"vendor"}, cfg.PipelineNames())
	})
}

func TestOpenBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	s := &Settings{Backend: BackendRedis, RedisURL: "redis://" + mr.Addr(), Instance: "test"}

	backend, err := s.OpenBackend(context.Background())
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.(*store.Client)
	assert.True(t, ok)

	s.RedisURL = "not a url"
	_, err = s.OpenBackend(context.Background())
	assert.ErrorContains(t, err, "invalid redis URL")
}
