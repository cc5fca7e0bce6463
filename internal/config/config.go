// Package config loads FlowForge's top-level configuration: LLM provider
// defaults, pipeline timeouts and retry budgets, and checkpoint sink
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Pipeline   PipelineConfig              `yaml:"pipeline"`
	Providers  map[string]ProviderConfig   `yaml:"providers"`
	Checkpoint CheckpointConfig            `yaml:"checkpoint"`
}

// PipelineConfig holds the controller's retry and timeout budgets
// (spec.md §5).
type PipelineConfig struct {
	MaxRetries            int           `yaml:"max_retries"`             // default 3
	ConfidenceThreshold   float64       `yaml:"confidence_threshold"`    // default 0.8
	LLMCallTimeout        time.Duration `yaml:"llm_call_timeout"`        // default 60s
	TotalWallClockBudget  time.Duration `yaml:"total_wall_clock_budget"` // default 120s
}

// ProviderConfig holds one LLM provider's override settings. Model and
// base URL are optional; the API key is always read from environment,
// never from this file.
type ProviderConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// CheckpointConfig selects and configures the pluggable checkpoint sink.
type CheckpointConfig struct {
	Kind string `yaml:"kind"` // "memory" (default), "file", "postgres"
	Path string `yaml:"path"` // directory for "file"
	DSN  string `yaml:"dsn"`  // connection string for "postgres"
}

// defaults returns a Config populated with the values named in spec.md §5.
func defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			MaxRetries:           3,
			ConfidenceThreshold:  0.8,
			LLMCallTimeout:       60 * time.Second,
			TotalWallClockBudget: 120 * time.Second,
		},
		Providers:  map[string]ProviderConfig{},
		Checkpoint: CheckpointConfig{Kind: "memory"},
	}
}

// Load reads a YAML configuration file at path, loads a .env file from the
// current working directory (if present, via godotenv) into the process
// environment, and returns a
// Config with unset fields carrying their defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return cfg, nil
}

// LoadDefault tries to load "flowforge.yaml" from the current directory.
// If the file does not exist, it returns sensible defaults. Any other
// error (permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("flowforge.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if envErr := godotenv.Load(); envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
				return nil, fmt.Errorf("loading .env: %w", envErr)
			}
			return defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}
