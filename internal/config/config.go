// Package config parses and validates breakwater run configurations.
//
// A run config names the fault-injection target, the load shape to
// drive at it, and the declared capacity the report judges failures
// against. Files are YAML, checked structurally against an embedded
// JSON Schema and then semantically validated.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/breakwater/internal/loadtest"
)

// Duration wraps time.Duration with YAML support for strings like
// "30s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
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

// Surface names which mock endpoint a run drives.
const (
	SurfaceProducts = "products"
	SurfacePayment  = "payment"
)

// RunConfig is the root of a run configuration file.
type RunConfig struct {
	// Name labels the run in reports.
	Name string `yaml:"name"`

	// Target describes the fault-injection endpoint under test.
	Target TargetConfig `yaml:"target"`

	// Run describes the load shape.
	Run RunSettings `yaml:"run"`

	// Capacity declares the concurrency-limit shape of the operation,
	// for report diagnosis only.
	Capacity CapacitySettings `yaml:"capacity"`
}

// TargetConfig describes the endpoint under test.
type TargetConfig struct {
	// BaseURL of the fault-injection API.
	BaseURL string `yaml:"baseUrl"`

	// Surface selects the endpoint: "products" (global sequence
	// stream) or "payment" (per-correlation streams).
	Surface string `yaml:"surface"`

	// Scenario is the outcome sequence descriptor, e.g. "500-500-ok".
	Scenario string `yaml:"scenario"`

	// Timeout for each HTTP call. Defaults to 30s.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// RunSettings describes the load shape.
type RunSettings struct {
	// Requests is how many calls to submit.
	Requests int `yaml:"requests"`

	// MaxWait bounds how long the run waits for all records before
	// assembling a partial report.
	MaxWait Duration `yaml:"maxWait"`

	// Stagger overrides the default per-ordinal submission delay.
	Stagger Duration `yaml:"stagger,omitempty"`
}

// CapacitySettings declares the operation's concurrency-limit shape.
type CapacitySettings struct {
	// Kind is "fixed" or "elastic".
	Kind string `yaml:"kind"`

	// Fixed shape.
	Limit int `yaml:"limit,omitempty"`

	// Elastic shape.
	CoreSize      int `yaml:"coreSize,omitempty"`
	MaxSize       int `yaml:"maxSize,omitempty"`
	QueueCapacity int `yaml:"queueCapacity,omitempty"`

	// MaxWait is the declared slot-wait budget of the operation.
	MaxWait Duration `yaml:"maxWait,omitempty"`
}

// CapacityConfig converts the declared shape to the harness type.
func (c CapacitySettings) CapacityConfig() loadtest.CapacityConfig {
	if c.Kind == "elastic" {
		return loadtest.ElasticCapacity(c.CoreSize, c.MaxSize, c.QueueCapacity, c.MaxWait.Std())
	}
	return loadtest.FixedCapacity(c.Limit, c.MaxWait.Std())
}

// Load reads, schema-checks, and validates a run configuration file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a run configuration document.
func Parse(data []byte) (*RunConfig, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Target.Timeout == 0 {
		cfg.Target.Timeout = Duration(30 * time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
