package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Intercept InterceptConfig `yaml:"intercept"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// OutputConfig controls the generated compilation database.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// InterceptConfig describes how the exec-interception library is activated
// in the build's child processes. The library itself is external; this tool
// only injects the environment and reads the trace files it writes.
type InterceptConfig struct {
	// LibraryPath is the preload library injected into every child.
	LibraryPath string `yaml:"library_path"`
	// PreloadVar is the platform loader variable carrying LibraryPath.
	PreloadVar string `yaml:"preload_var"`
	// OutputVar tells the library where to write its trace files.
	OutputVar string `yaml:"output_var"`
	// KeepTraces leaves the temp trace directory behind for debugging.
	KeepTraces bool `yaml:"keep_traces"`
}

// DatabaseConfig controls the optional run-history sink.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig controls the end-of-run pipeline counter summary.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Path: "compile_commands.json",
		},
		Intercept: InterceptConfig{
			LibraryPath: "/usr/local/lib/libtrace-exec.so",
			PreloadVar:  "LD_PRELOAD",
			OutputVar:   "TRACE_EXEC_OUTPUT",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	if c.Intercept.PreloadVar == "" {
		return fmt.Errorf("intercept.preload_var must not be empty")
	}
	if c.Intercept.OutputVar == "" {
		return fmt.Errorf("intercept.output_var must not be empty")
	}
	if !filepath.IsAbs(c.Intercept.LibraryPath) {
		return fmt.Errorf("intercept.library_path: %q must be an absolute path", c.Intercept.LibraryPath)
	}
	if _, err := os.Stat(c.Intercept.LibraryPath); err != nil {
		log.Warn().Str("path", c.Intercept.LibraryPath).
			Msg("interception library not found, traced builds will record nothing")
	}
	return nil
}
