// Package config loads the builtingen.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/builtingen/internal/ir"
)

// DefaultFileName is the project file looked up in the working directory.
const DefaultFileName = "builtingen.yaml"

// Environment variables that override file values.
const (
	EnvSpecs    = "BUILTINGEN_SPECS"
	EnvOutput   = "BUILTINGEN_OUTPUT"
	EnvDatabase = "BUILTINGEN_DATABASE"
)

// Config holds builtingen project settings.
type Config struct {
	// Specs is the CUE specs directory.
	Specs string `yaml:"specs"`

	// Output is the generated include file. Empty means stdout.
	Output string `yaml:"output"`

	// Database is the sqlite snapshot store path.
	Database string `yaml:"database"`

	// Macros renames emitted macros. Unset names keep the defaults.
	Macros ir.MacroNames `yaml:"macros"`

	// Watch configures emit --watch.
	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig configures the spec watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // e.g. "200ms"
}

// Overrides are command-line values. Non-empty fields win over the file.
type Overrides struct {
	Specs    string
	Output   string
	Database string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Specs:  "specs",
		Macros: ir.DefaultMacroNames(),
		Watch: WatchConfig{
			Debounce: "200ms",
		},
	}
}

// Load reads configuration from a YAML file on top of DefaultConfig.
// A missing file yields the defaults. Unknown keys are rejected.
// Relative paths in the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Macros = cfg.Macros.WithDefaults()
	cfg.resolvePaths(filepath.Dir(path))

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Specs, &c.Output, &c.Database} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// applyEnvOverrides overrides config with environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvSpecs); v != "" {
		c.Specs = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
}

// ApplyOverrides lets command-line values win over file and environment.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Specs != "" {
		c.Specs = o.Specs
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Database != "" {
		c.Database = o.Database
	}
}

// Validate checks macro names and the watch debounce.
func (c *Config) Validate() error {
	if err := c.Macros.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("macros: %w", err)
	}
	if c.Watch.Debounce != "" {
		d, err := time.ParseDuration(c.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watch.debounce: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("watch.debounce: must not be negative")
		}
	}
	return nil
}

// GetDebounce returns the watch debounce, 200ms if unset.
func (c *Config) GetDebounce() time.Duration {
	if d, err := time.ParseDuration(c.Watch.Debounce); err == nil {
		return d
	}
	return 200 * time.Millisecond
}
