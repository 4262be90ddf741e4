// Package config loads the runtime settings file: turn-loop tuning,
// persistence paths, and the ordered set of external tool providers.
package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skyefallon/waypost/internal/provider"
)

// Settings is the on-disk configuration for a waypost process.
type Settings struct {
	// PlanPath is where the notebook persists the plan between runs.
	PlanPath string `yaml:"plan_path"`

	// PromptDir holds the dotprompt files for the reasoner.
	PromptDir string `yaml:"prompt_dir"`

	// Model is the default model reference for prompt execution.
	Model string `yaml:"model"`

	// MaxTurns bounds reasoning steps per query.
	MaxTurns int `yaml:"max_turns"`

	// ConnectTimeout bounds each provider connect attempt.
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// MaxConcurrentRefresh bounds concurrent capability refreshes.
	MaxConcurrentRefresh int `yaml:"max_concurrent_refresh"`

	EventBus EventBusSettings `yaml:"event_bus"`

	// Providers holds the external tool providers in declaration order.
	// Order matters: startup follows it and teardown reverses it.
	Providers ProviderList `yaml:"providers"`
}

// Duration wraps time.Duration so settings files can use values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("durations must be strings like \"30s\": %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EventBusSettings tunes the internal event bus.
type EventBusSettings struct {
	Enabled     bool `yaml:"enabled"`
	BufferSize  int  `yaml:"buffer_size"`
	WorkerCount int  `yaml:"worker_count"`

	// MaxRetries is how often a failing event handler is retried before the
	// event is dropped; RetryInterval is the pause between attempts.
	MaxRetries    int      `yaml:"max_retries"`
	RetryInterval Duration `yaml:"retry_interval"`
}

// ProviderList is an ordered list of provider declarations. It unmarshals
// from a YAML mapping while preserving the document's key order, which a
// plain map would lose.
type ProviderList []provider.Declaration

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ProviderList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("providers must be a mapping, got %v", value.Kind)
	}

	for i := 0; i < len(value.Content)-1; i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var cfg provider.Config
		if err := valueNode.Decode(&cfg); err != nil {
			return fmt.Errorf("provider '%s': %w", keyNode.Value, err)
		}

		*l = append(*l, provider.Declaration{
			Name:   keyNode.Value,
			Config: cfg,
		})
	}

	return nil
}

var (
	loadOnce     sync.Once
	loadedConfig *Settings
	loadErr      error
)

// Load reads and caches the settings file. Subsequent calls return the same
// settings regardless of path.
func Load(path string) (*Settings, error) {
	loadOnce.Do(func() {
		loadedConfig, loadErr = load(path)
	})
	return loadedConfig, loadErr
}

// load parses one settings file without touching the process-wide cache.
func load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := defaults()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	settings.resolveWhenExpressions()

	return settings, nil
}

// Parse reads settings from raw YAML. Used by tests and embedded callers.
func Parse(data []byte) (*Settings, error) {
	settings := defaults()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	settings.resolveWhenExpressions()

	return settings, nil
}

func defaults() *Settings {
	return &Settings{
		PlanPath:             "plan.json",
		PromptDir:            "prompts",
		Model:                "googleai/gemini-1.5-flash",
		MaxTurns:             16,
		ConnectTimeout:       Duration(30 * time.Second),
		MaxConcurrentRefresh: 4,
		EventBus: EventBusSettings{
			Enabled:       true,
			BufferSize:    100,
			WorkerCount:   5,
			MaxRetries:    3,
			RetryInterval: Duration(100 * time.Millisecond),
		},
	}
}

// resolveWhenExpressions folds each provider's `when` expression into its
// Enabled flag. An expression that fails to evaluate disables the provider
// rather than failing the whole load.
func (s *Settings) resolveWhenExpressions() {
	for i := range s.Providers {
		decl := &s.Providers[i]
		if decl.Config.When == "" {
			continue
		}

		enabled, err := EvaluateWhen(decl.Config.When)
		if err != nil {
			log.Printf("Disabling provider '%s': %v", decl.Name, err)
			disabled := false
			decl.Config.Enabled = &disabled
			continue
		}

		if !enabled {
			disabled := false
			decl.Config.Enabled = &disabled
		}
	}
}
