// Package config loads swarmsim configuration from YAML with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all swarmsim configuration.
type Config struct {
	// Seed drives every deterministic random source.
	Seed int64 `yaml:"seed"`

	Habitat HabitatConfig `yaml:"habitat"`
	LLM     LLMConfig     `yaml:"llm"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Store   StoreConfig   `yaml:"store"`
	API     APIConfig     `yaml:"api"`
}

// HabitatConfig sizes the shared environment.
type HabitatConfig struct {
	// Pools maps resource names to total capacity.
	Pools map[string]float64 `yaml:"pools"`

	// ExtraDynamics adds habitat state variables beyond the standard set.
	ExtraDynamics map[string]float64 `yaml:"extra_dynamics"`
}

// LLMConfig configures the generation collaborator.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`

	// MaxInFlight bounds concurrent generation calls across all agents.
	MaxInFlight int64 `yaml:"max_in_flight"`
}

// RuntimeConfig paces the habitat runtime.
type RuntimeConfig struct {
	Agents        int     `yaml:"agents"`         // demo agents to spawn
	CycleInterval string  `yaml:"cycle_interval"` // per-agent decision pacing
	TickInterval  string  `yaml:"tick_interval"`  // dynamics update pacing
	TickDelta     float64 `yaml:"tick_delta"`     // sim-hours per dynamics tick
}

// StoreConfig locates the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// APIConfig configures the read-only observation API.
type APIConfig struct {
	Port    int  `yaml:"port"`
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Seed: 42,
		Habitat: HabitatConfig{
			Pools: map[string]float64{
				"compute":   100,
				"memory":    100,
				"io":        100,
				"bandwidth": 100,
			},
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Timeout:     "15s",
			MaxInFlight: 4,
		},
		Runtime: RuntimeConfig{
			Agents:        8,
			CycleInterval: "1s",
			TickInterval:  "1s",
			TickDelta:     0.25,
		},
		Store: StoreConfig{Path: "data/swarmsim.db"},
		API:   APIConfig{Port: 8080, Enabled: true},
	}
}

// Load reads a config file, layering it over defaults and then applying
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets and deploy-time knobs come from the
// environment instead of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWARMSIM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SWARMSIM_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SWARMSIM_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SWARMSIM_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "gemini", "none", "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	for name, total := range c.Habitat.Pools {
		if total <= 0 {
			return fmt.Errorf("pool %s: total must be positive", name)
		}
	}
	if c.Runtime.TickDelta <= 0 {
		return fmt.Errorf("tick_delta must be positive")
	}
	if _, err := c.CognitiveTimeout(); err != nil {
		return err
	}
	if _, err := c.CycleInterval(); err != nil {
		return err
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	return nil
}

// CognitiveTimeout parses the LLM timeout.
func (c *Config) CognitiveTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout, 15*time.Second)
}

// CycleInterval parses the per-agent cycle pacing.
func (c *Config) CycleInterval() (time.Duration, error) {
	return parseDuration("runtime.cycle_interval", c.Runtime.CycleInterval, time.Second)
}

// TickInterval parses the dynamics tick pacing.
func (c *Config) TickInterval() (time.Duration, error) {
	return parseDuration("runtime.tick_interval", c.Runtime.TickInterval, time.Second)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}
