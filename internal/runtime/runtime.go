// Package runtime defines the boundary to the simulated event runtime:
// the collaborator that actually executes an implementation's event
// handlers against a given state.
//
// The harness core only depends on the narrow Run contract. Real
// implementations adapt their own event-handling machinery behind it; a
// deterministic ScriptRuntime ships for tests and dry runs.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/interlock/internal/relmodel"
)

// Config is the opaque runtime bundle needed to construct a simulated
// run: the implementation's identity plus its declared metadata, config
// options and actions.
type Config struct {
	// Name identifies the implementation under test.
	Name string `yaml:"name"`

	// Meta is the implementation's declared metadata (endpoint
	// declarations and the like). Passed through to the runtime verbatim.
	Meta map[string]any `yaml:"meta,omitempty"`

	// Config is the implementation's declared config option schema.
	Config map[string]any `yaml:"config,omitempty"`

	// Actions is the implementation's declared action schema.
	Actions map[string]any `yaml:"actions,omitempty"`
}

// LoadConfig reads a runtime config bundle from a YAML file.
func LoadConfig(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading runtime config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(src, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing runtime config %s: %w", filepath.Base(path), err)
	}
	if cfg.Name == "" {
		return Config{}, fmt.Errorf("runtime config %s: name is required", filepath.Base(path))
	}
	return cfg, nil
}

// Runtime executes one simulated event against a state snapshot and
// returns the resulting state.
//
// Implementations must be deterministic for identical inputs; the harness
// assumes no other contract. The returned state must be a new snapshot,
// never a mutation of the input.
type Runtime interface {
	Run(ctx context.Context, cfg Config, event relmodel.Event, state relmodel.State) (relmodel.State, error)
}
