package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dyluth/lanes/internal/config"
	"github.com/dyluth/lanes/internal/crm"
	"github.com/dyluth/lanes/internal/printer"
	"github.com/dyluth/lanes/internal/resolver"
	"github.com/dyluth/lanes/internal/settings"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/spf13/cobra"
)

// session bundles what a command needs: resolved settings, the pipeline
// configuration and, when opened, the entity store.
type session struct {
	settings *settings.Settings
	config   *config.LanesConfig
	registry *pipeline.Registry
	backend  store.Backend
}

// loadSession resolves settings and configuration without touching the store.
func loadSession(cmd *cobra.Command) (*session, error) {
	s, err := settings.Load(cmd.Flags())
	if err != nil {
		return nil, printer.Error("invalid settings", err.Error(), []string{"Run 'lanes --help' for the available flags"})
	}

	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, printer.ErrorWithContext(
			"failed to load configuration",
			err.Error(),
			map[string]string{"Config": s.ConfigPath},
			[]string{"Fix the file, or remove it to use the built-in CRM pipelines"},
		)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &session{settings: s, config: cfg, registry: reg}, nil
}

// openSession is loadSession plus a connected store.
func openSession(cmd *cobra.Command) (*session, error) {
	sess, err := loadSession(cmd)
	if err != nil {
		return nil, err
	}

	backend, err := sess.settings.OpenBackend(cmd.Context())
	if err != nil {
		return nil, printer.ErrorWithContext(
			"store connection failed",
			err.Error(),
			map[string]string{"Backend": sess.settings.Backend, "Instance": sess.settings.Instance},
			[]string{
				"Check --redis-url (or LANES_REDIS_URL) points at a running Redis",
				"Use --backend postgres with --postgres-dsn for PostgreSQL",
			},
		)
	}
	sess.backend = backend
	return sess, nil
}

func (s *session) Close() {
	if s.backend != nil {
		s.backend.Close()
	}
}

// pipeline validates a pipeline argument against the configuration.
func (s *session) pipeline(name string) (pipeline.PipelineType, error) {
	p := pipeline.PipelineType(name)
	if _, err := s.registry.Stages(p); err != nil {
		return "", printer.Error(
			fmt.Sprintf("unknown pipeline '%s'", name),
			fmt.Sprintf("Configured pipelines: %s", strings.Join(s.config.PipelineNames(), ", ")),
			[]string{"Run 'lanes stages' to list pipelines and their stages"},
		)
	}
	return p, nil
}

// lane builds and loads the board for p.
func (s *session) lane(ctx context.Context, p pipeline.PipelineType) (crm.Lane, error) {
	opts := crm.OptionsFromConfig(s.config)
	opts.Logger = log.New(io.Discard, "", 0)
	if verbose {
		opts.Logger = log.New(os.Stderr, "", 0)
	}

	lanes, err := crm.NewLanes(s.registry, s.backend, opts)
	if err != nil {
		return nil, err
	}
	l := lanes[p]
	if _, err := l.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load %s board: %w", p, err)
	}
	return l, nil
}

// label returns a stage label lookup for p that falls back to the raw ID.
func (s *session) label(p pipeline.PipelineType) func(string) string {
	return func(id string) string {
		if st, err := s.registry.Stage(p, id); err == nil {
			return st.Label
		}
		return id
	}
}

// resolveEntity expands a full or short entity ID against the loaded board.
func resolveEntity(l crm.Lane, input string) (string, error) {
	var ids []string
	for _, col := range l.Snapshot().Columns {
		ids = append(ids, col.EntityIDs...)
	}

	id, err := resolver.ResolveEntityID(ids, input)
	var ambiguous *resolver.AmbiguousError
	switch {
	case err == nil:
		return id, nil
	case errors.As(err, &ambiguous):
		return "", printer.Error(
			fmt.Sprintf("ambiguous entity ID '%s'", input),
			resolver.FormatAmbiguousError(ambiguous),
			[]string{"Use a longer prefix to uniquely identify the entity"},
		)
	default:
		return "", printer.Error(
			fmt.Sprintf("entity '%s' not found", input),
			fmt.Sprintf("%v on the %s board.", err, l.Pipeline()),
			[]string{fmt.Sprintf("Run 'lanes board %s' to list entity IDs", l.Pipeline())},
		)
	}
}
