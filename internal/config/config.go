package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Source  string        `yaml:"source"`
	Output  string        `yaml:"output"`
	Jobs    int           `yaml:"jobs"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
	Git     GitConfig     `yaml:"git"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServeConfig holds the HTTP preview server configuration.
type ServeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address for the preview server.
func (c ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WatchConfig holds the filesystem watch / rebuild loop configuration.
type WatchConfig struct {
	// Dir is the directory to watch for changes. Empty means the source
	// directory. Events outside the source root force a full rebuild since
	// they cannot be mapped to pages.
	Dir string `yaml:"dir"`
	// Debounce is how long the session waits after the last filesystem
	// event before starting a rebuild cycle.
	Debounce time.Duration `yaml:"debounce"`
	// ReconcileInterval schedules a periodic full rebuild to recover from
	// missed events. Zero disables it.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	// Incremental re-renders only changed pages and their backlinks when a
	// change batch contains no creates, removes or renames.
	Incremental bool `yaml:"incremental"`
}

// GitConfig controls the per-page git history lookup.
type GitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// MetricsConfig controls the Prometheus endpoint in serve mode.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Source: ".",
		Output: "_public",
		Jobs:   runtime.NumCPU(),
		Serve: ServeConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Watch: WatchConfig{
			Debounce:    300 * time.Millisecond,
			Incremental: true,
		},
		Git: GitConfig{
			Enabled:       true,
			LookupTimeout: 5 * time.Second,
		},
	}
}

// Load reads the configuration file at configPath, expands ${VAR} references
// against the environment and layers the result over the defaults. A missing
// file is not an error when optional is true; Load then returns the defaults.
func Load(configPath string, optional bool) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) && optional {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content before unmarshal.
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Source == "" {
		cfg.Source = def.Source
	}
	if cfg.Output == "" {
		cfg.Output = def.Output
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = def.Jobs
	}
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = def.Serve.Host
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = def.Serve.Port
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
	if cfg.Git.LookupTimeout <= 0 {
		cfg.Git.LookupTimeout = def.Git.LookupTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.Jobs, validation.Min(1)),
	); err != nil {
		return err
	}
	if err := c.Serve.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// Validate validates the serve configuration.
func (c *ServeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	if c.Debounce < 10*time.Millisecond {
		return fmt.Errorf("watch: debounce %s is below the 10ms floor", c.Debounce)
	}
	if c.ReconcileInterval != 0 && c.ReconcileInterval < time.Second {
		return fmt.Errorf("watch: reconcile_interval %s is below the 1s floor", c.ReconcileInterval)
	}
	return nil
}
