// Package settings resolves process settings for the lanes CLI and daemon
// from flags, LANES_* environment variables and defaults, in that order.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/lanes/internal/config"
	"github.com/dyluth/lanes/internal/pgstore"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names. The matching environment variable is LANES_ plus the name in
// upper case with dashes replaced by underscores (e.g. LANES_REDIS_URL).
const (
	FlagConfig      = "config"
	FlagBackend     = "backend"
	FlagRedisURL    = "redis-url"
	FlagInstance    = "instance"
	FlagPostgresDSN = "postgres-dsn"
	FlagListen      = "listen"
)

// Defaults.
const (
	DefaultConfigPath = "lanes.yml"
	DefaultRedisURL   = "redis://localhost:6379/0"
	DefaultInstance   = "default"
	DefaultListenAddr = ":8080"
)

// Supported backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Settings are the resolved process settings.
type Settings struct {
	ConfigPath  string
	Backend     string
	RedisURL    string
	Instance    string
	PostgresDSN string
	ListenAddr  string
}

// RegisterFlags adds the shared flags to fs. The daemon also passes
// withListen to expose the HTTP listen address.
func RegisterFlags(fs *pflag.FlagSet, withListen bool) {
	fs.StringP(FlagConfig, "c", DefaultConfigPath, "path to lanes.yml (built-in CRM pipelines if the default file is absent)")
	fs.String(FlagBackend, BackendRedis, "entity store backend: redis or postgres")
	fs.String(FlagRedisURL, DefaultRedisURL, "Redis URL for the redis backend")
	fs.String(FlagInstance, DefaultInstance, "instance name used to namespace stored entities")
	fs.String(FlagPostgresDSN, "", "PostgreSQL connection string for the postgres backend")
	if withListen {
		fs.String(FlagListen, DefaultListenAddr, "address for /healthz and /metrics")
	}
}

// Load resolves settings from the flags registered on fs and the environment.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("LANES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(FlagConfig, DefaultConfigPath)
	v.SetDefault(FlagBackend, BackendRedis)
	v.SetDefault(FlagRedisURL, DefaultRedisURL)
	v.SetDefault(FlagInstance, DefaultInstance)
	v.SetDefault(FlagListen, DefaultListenAddr)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	s := &Settings{
		ConfigPath:  v.GetString(FlagConfig),
		Backend:     strings.ToLower(v.GetString(FlagBackend)),
		RedisURL:    v.GetString(FlagRedisURL),
		Instance:    v.GetString(FlagInstance),
		PostgresDSN: v.GetString(FlagPostgresDSN),
		ListenAddr:  v.GetString(FlagListen),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the instance name and the backend selection.
func (s *Settings) Validate() error {
	if err := ValidateInstanceName(s.Instance); err != nil {
		return err
	}
	switch s.Backend {
	case BackendRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("--%s is required for the redis backend", FlagRedisURL)
		}
	case BackendPostgres:
		if s.PostgresDSN == "" {
			return fmt.Errorf("--%s is required for the postgres backend", FlagPostgresDSN)
		}
	default:
		return fmt.Errorf("unknown backend %q (expected %s or %s)", s.Backend, BackendRedis, BackendPostgres)
	}
	return nil
}

// LoadConfig loads the pipeline configuration. A missing file at the default
// path yields the built-in CRM pipelines; any other missing file is an error.
func (s *Settings) LoadConfig() (*config.LanesConfig, error) {
	if s.ConfigPath == DefaultConfigPath {
		if _, err := os.Stat(s.ConfigPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(s.ConfigPath)
}

// OpenBackend connects to the configured store and verifies it answers.
func (s *Settings) OpenBackend(ctx context.Context) (store.Backend, error) {
	switch s.Backend {
	case BackendPostgres:
		return pgstore.Open(ctx, s.PostgresDSN, s.Instance)
	default:
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client, err := store.NewClient(opts, s.Instance)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
		}
		return client, nil
	}
}
