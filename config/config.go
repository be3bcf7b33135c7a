// Package config — podraft.yaml configuration file support.
//
// The config file declares the catalog paths, the translation provider,
// and the pipeline knobs (batch size, workers, retries). CLI flags
// override file values; everything is validated once, before any
// provider call is made.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "podraft.yaml"

// ConfigError describes an invalid configuration value. It is fatal and
// always raised before dispatch begins.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Provider describes the translation backend endpoint.
type Provider struct {
	// ID selects the backend variant: "ollama", "openai", "gemini", "anthropic".
	ID string `yaml:"id"`
	// BaseURL is the API base URL (defaults depend on the variant).
	BaseURL string `yaml:"base_url,omitempty"`
	// Model is the model identifier.
	Model string `yaml:"model"`
	// APIKey authenticates hosted providers (empty for local servers).
	// Usually left out of the file; see the settings store and
	// PODRAFT_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// TimeoutSeconds is the per-request timeout (default 120).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the request timeout as a duration.
func (p Provider) Timeout() time.Duration {
	if p.TimeoutSeconds > 0 {
		return time.Duration(p.TimeoutSeconds) * time.Second
	}
	return 120 * time.Second
}

// Config is the top-level podraft.yaml structure.
type Config struct {
	// Language is the target language code (e.g. "ko", "pt_BR").
	Language string `yaml:"language"`
	// Input is the catalog to translate (.po).
	Input string `yaml:"input"`
	// Base is an optional prior snapshot of the catalog; when set, only
	// entries that are new or changed relative to it are queued.
	Base string `yaml:"base,omitempty"`
	// Output is where the merged catalog is written (default: Input).
	Output string `yaml:"output,omitempty"`

	Provider Provider `yaml:"provider"`

	// BatchSize is how many entries go into one backend call (default 5).
	BatchSize int `yaml:"batch_size,omitempty"`
	// Workers bounds how many batches are in flight at once (default 1).
	Workers int `yaml:"workers,omitempty"`
	// MaxRetries is how many times a failed batch is retried (default 0).
	MaxRetries int `yaml:"max_retries,omitempty"`
	// RequestDelayMS is the delay between launching batches.
	RequestDelayMS int `yaml:"request_delay_ms,omitempty"`

	// Glossary is an optional glossary catalog (msgid=term, msgstr=rendering).
	Glossary string `yaml:"glossary,omitempty"`
	// Examples is an optional reviewed catalog sampled for few-shot pairs.
	Examples string `yaml:"examples,omitempty"`
	// ExampleCount is how many few-shot pairs to attach per batch (default 2).
	ExampleCount int `yaml:"example_count,omitempty"`

	// Prompt overrides the built-in system prompt.
	Prompt string `yaml:"prompt,omitempty"`
}

// Default returns a config with all pipeline defaults filled in.
func Default() *Config {
	return &Config{
		BatchSize:    5,
		Workers:      1,
		MaxRetries:   0,
		ExampleCount: 2,
		Provider:     Provider{ID: "ollama", TimeoutSeconds: 120},
	}
}

// Load reads and parses podraft.yaml. Missing file is not an error —
// everything can come from flags; a nil config is returned in that case.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.ExampleCount == 0 {
		c.ExampleCount = 2
	}
	if c.Output == "" {
		c.Output = c.Input
	}
}

// Validate checks the config before the pipeline starts. All failures
// are *ConfigError: structural problems abort the whole run up front.
func (c *Config) Validate() error {
	if c.Input == "" {
		return &ConfigError{Field: "input", Msg: "no input catalog given"}
	}
	if c.Language == "" {
		return &ConfigError{Field: "language", Msg: "no target language given"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Field: "batch_size", Msg: fmt.Sprintf("must be >= 1, got %d", c.BatchSize)}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Msg: fmt.Sprintf("must be >= 1, got %d", c.Workers)}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "max_retries", Msg: fmt.Sprintf("must be >= 0, got %d", c.MaxRetries)}
	}
	if c.RequestDelayMS < 0 {
		return &ConfigError{Field: "request_delay_ms", Msg: "must be >= 0"}
	}
	if c.Provider.ID == "" {
		return &ConfigError{Field: "provider.id", Msg: "no provider selected"}
	}
	if c.Provider.Model == "" {
		return &ConfigError{Field: "provider.model", Msg: "no model given"}
	}
	return nil
}

// RequestDelay returns the inter-batch launch delay as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}
