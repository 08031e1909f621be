package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Engine defaults applied by Validate when lanes.yml omits them
const (
	DefaultCommitTimeout   = "10s"
	DefaultRefreshSchedule = "@every 30s"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// EngineConfig tunes the transition engine
type EngineConfig struct {
	CommitTimeout      string   `yaml:"commit_timeout,omitempty"`      // Go duration; "0s" disables the timeout
	ActivationDistance *float64 `yaml:"activation_distance,omitempty"` // Pointer units before a press becomes a drag (default 8, 0 drags on first move)
	RefreshSchedule    string   `yaml:"refresh_schedule,omitempty"`    // Cron spec for lanesd's periodic board refresh

	commitTimeout time.Duration
}

// LanesConfig represents the top-level lanes.yml configuration
type LanesConfig struct {
	Version   string                    `yaml:"version"`
	Engine    *EngineConfig             `yaml:"engine,omitempty"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// PipelineConfig lists the stages of one pipeline type
type PipelineConfig struct {
	Stages []StageConfig `yaml:"stages"`
}

// StageConfig is one configured stage
type StageConfig struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Ordinal  int    `yaml:"ordinal"`
	Color    string `yaml:"color,omitempty"`
	Terminal bool   `yaml:"terminal,omitempty"`
}

// Validate performs strict validation on the configuration and applies defaults
func (c *LanesConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: at least one pipeline
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("no pipelines defined")
	}

	for name, p := range c.Pipelines {
		for _, s := range p.Stages {
			if s.Color != "" && !hexColor.MatchString(s.Color) {
				return fmt.Errorf("pipeline '%s' stage '%s' has invalid color '%s' (expected #rrggbb)", name, s.ID, s.Color)
			}
		}
	}

	// Stage structure rules are owned by the engine's registry
	if _, err := c.Registry(); err != nil {
		return err
	}

	// Apply engine defaults
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.CommitTimeout == "" {
		c.Engine.CommitTimeout = DefaultCommitTimeout
	}
	d, err := time.ParseDuration(c.Engine.CommitTimeout)
	if err != nil {
		return fmt.Errorf("engine.commit_timeout: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("engine.commit_timeout must be >= 0, got %s", c.Engine.CommitTimeout)
	}
	c.Engine.commitTimeout = d

	if c.Engine.ActivationDistance == nil {
		defaultDistance := pipeline.DefaultActivationDistance
		c.Engine.ActivationDistance = &defaultDistance
	} else if *c.Engine.ActivationDistance < 0 {
		return fmt.Errorf("engine.activation_distance must be >= 0, got %v", *c.Engine.ActivationDistance)
	}

	if c.Engine.RefreshSchedule == "" {
		c.Engine.RefreshSchedule = DefaultRefreshSchedule
	}
	if _, err := cron.ParseStandard(c.Engine.RefreshSchedule); err != nil {
		return fmt.Errorf("engine.refresh_schedule: %w", err)
	}

	return nil
}

// CommitTimeoutDuration returns the parsed commit timeout. Only valid after Validate.
func (e *EngineConfig) CommitTimeoutDuration() time.Duration {
	return e.commitTimeout
}

// Registry builds the engine's stage registry from the configured pipelines.
func (c *LanesConfig) Registry() (*pipeline.Registry, error) {
	sets := make(map[pipeline.PipelineType][]pipeline.Stage, len(c.Pipelines))
	for name, p := range c.Pipelines {
		stages := make([]pipeline.Stage, len(p.Stages))
		for i, s := range p.Stages {
			stages[i] = pipeline.Stage{
				ID:       s.ID,
				Label:    s.Label,
				Ordinal:  s.Ordinal,
				Color:    s.Color,
				Terminal: s.Terminal,
			}
		}
		sets[pipeline.PipelineType(name)] = stages
	}
	return pipeline.NewRegistry(sets)
}

// PipelineNames returns the configured pipeline names, sorted.
func (c *LanesConfig) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads and validates lanes.yml from the specified path
func Load(path string) (*LanesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config LanesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in CRM pipelines, already validated.
func Default() *LanesConfig {
	c := &LanesConfig{
		Version: "1.0",
		Pipelines: map[string]PipelineConfig{
			string(pipeline.PipelineLead): {Stages: []StageConfig{
				{ID: "new", Label: "New", Ordinal: 1, Color: "#94a3b8"},
				{ID: "contacted", Label: "Contacted", Ordinal: 2, Color: "#60a5fa"},
				{ID: "qualified", Label: "Qualified", Ordinal: 3, Color: "#3b82f6"},
				{ID: "proposal", Label: "Proposal", Ordinal: 4, Color: "#a855f7"},
				{ID: "won", Label: "Won", Ordinal: 5, Color: "#22c55e", Terminal: true},
				{ID: "lost", Label: "Lost", Ordinal: 6, Color: "#ef4444", Terminal: true},
			}},
			string(pipeline.PipelineMandate): {Stages: []StageConfig{
				{ID: "prospect", Label: "Prospect", Ordinal: 1, Color: "#94a3b8"},
				{ID: "signed", Label: "Signed", Ordinal: 2, Color: "#60a5fa"},
				{ID: "marketing", Label: "Marketing", Ordinal: 3, Color: "#f59e0b"},
				{ID: "due_diligence", Label: "Due Diligence", Ordinal: 4, Color: "#a855f7"},
				{ID: "closing", Label: "Closing", Ordinal: 5, Color: "#3b82f6"},
				{ID: "closed", Label: "Closed", Ordinal: 6, Color: "#22c55e", Terminal: true},
			}},
			string(pipeline.PipelineTarget): {Stages: []StageConfig{
				{ID: "identified", Label: "Identified", Ordinal: 1, Color: "#94a3b8"},
				{ID: "contacted", Label: "Contacted", Ordinal: 2, Color: "#60a5fa"},
				{ID: "nda", Label: "NDA Signed", Ordinal: 3, Color: "#f59e0b"},
				{ID: "interested", Label: "Interested", Ordinal: 4, Color: "#22c55e"},
				{ID: "rejected", Label: "Rejected", Ordinal: 5, Color: "#ef4444", Terminal: true},
			}},
		},
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("built-in configuration is invalid: %v", err))
	}
	return c
}
