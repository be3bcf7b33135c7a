package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `language: ko
input: po/ko/releasenotes.po
provider:
  id: ollama
  model: llama3.2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BatchSize != 5 {
		t.Fatalf("BatchSize = %d, want default 5", cfg.BatchSize)
	}
	if cfg.Workers != 1 {
		t.Fatalf("Workers = %d, want default 1", cfg.Workers)
	}
	if cfg.Output != cfg.Input {
		t.Fatalf("Output = %q, want input path", cfg.Output)
	}
	if cfg.Provider.Timeout() != 120*time.Second {
		t.Fatalf("Timeout = %v, want 120s", cfg.Provider.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("cfg = %#v, want nil for missing file", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"missing input", func(c *Config) { c.Input = "" }, "input"},
		{"missing language", func(c *Config) { c.Language = "" }, "language"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"negative batch size", func(c *Config) { c.BatchSize = -3 }, "batch_size"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"missing model", func(c *Config) { c.Provider.Model = "" }, "provider.model"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Input = "x.po"
			cfg.Language = "ko"
			cfg.Provider.Model = "llama3.2"
			tc.mod(cfg)

			err := cfg.Validate()
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if cerr.Field != tc.field {
				t.Fatalf("field = %q, want %q", cerr.Field, tc.field)
			}
		})
	}
}
