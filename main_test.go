package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/podraft/podraft/config"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    colorRed + "░░░░" + colorReset + "   0%",
		},
		{
			name:    "mid range uses yellow",
			percent: 50,
			width:   4,
			want:    colorYellow + "██░░" + colorReset + "  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    colorGreen + "████" + colorReset + " 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(filePath, []byte("ok"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	if !fileExists(filePath) {
		t.Fatalf("fileExists(file) = false, want true")
	}
	if fileExists(dir) {
		t.Fatalf("fileExists(directory) = true, want false")
	}
	if fileExists(filepath.Join(dir, "missing.txt")) {
		t.Fatalf("fileExists(missing) = true, want false")
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := config.Default()
	cfg.Language = "de"
	cfg.Input = "po/de.po"
	cfg.Output = "po/de.po"
	cfg.BatchSize = 10

	o := &overrides{
		lang:      "ko",
		provider:  "openai",
		model:     "gpt-4o-mini",
		batchSize: 3,
	}
	o.apply(cfg)

	if cfg.Language != "ko" {
		t.Errorf("Language = %q, want ko", cfg.Language)
	}
	if cfg.Provider.ID != "openai" || cfg.Provider.Model != "gpt-4o-mini" {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("BatchSize = %d, want 3", cfg.BatchSize)
	}
	// Untouched fields keep their file values
	if cfg.Input != "po/de.po" || cfg.Output != "po/de.po" {
		t.Errorf("paths changed: %q -> %q", cfg.Input, cfg.Output)
	}
}

func TestOverridesApply_InputDefaultsOutput(t *testing.T) {
	cfg := config.Default()
	o := &overrides{input: "po/ko.po"}
	o.apply(cfg)

	if cfg.Output != "po/ko.po" {
		t.Errorf("Output = %q, want po/ko.po", cfg.Output)
	}
}

func TestOverridesApply_NilIsNoop(t *testing.T) {
	cfg := config.Default()
	before := *cfg

	var o *overrides
	o.apply(cfg)

	if *cfg != before {
		t.Errorf("nil overrides changed the config: %+v", cfg)
	}
}
