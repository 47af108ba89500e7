package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.Engine != want.Engine || cfg.Dataset != want.Dataset || cfg.Server != want.Server || cfg.Render != want.Render {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
	if cfg.Simulate.Logs != 1500*time.Millisecond || cfg.Simulate.Volume != time.Second {
		t.Fatalf("simulate intervals %+v", cfg.Simulate)
	}
}

func TestFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensorsql.yml")
	body := []byte("engine:\n  mode: fallback\ndataset:\n  size: 25\n  seed: 7\nrender:\n  format: csv\nsimulate:\n  structured: 5s\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENSORSQL_DATASET_SIZE", "40")
	t.Setenv("SENSORSQL_LOG_LEVEL", "DEBUG")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("format", "table", "")
	fs.String("engine", "auto", "")
	if err := fs.Parse([]string{"--format", "json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, map[string]*pflag.Flag{
		"render.format": fs.Lookup("format"),
		"engine.mode":   fs.Lookup("engine"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Mode != "fallback" {
		t.Fatalf("unset flag must not override the file: %q", cfg.Engine.Mode)
	}
	if cfg.Dataset.Size != 40 || cfg.Dataset.Seed != 7 {
		t.Fatalf("dataset %+v", cfg.Dataset)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Fatalf("log level %q", cfg.Log.Level)
	}
	if cfg.Render.Format != "json" {
		t.Fatalf("flag should win: %q", cfg.Render.Format)
	}
	if cfg.Simulate.Structured != 5*time.Second {
		t.Fatalf("structured interval %v", cfg.Simulate.Structured)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"engine", func(c *Config) { c.Engine.Mode = "postgres" }},
		{"format", func(c *Config) { c.Render.Format = "html" }},
		{"size", func(c *Config) { c.Dataset.Size = -1 }},
		{"velocity", func(c *Config) { c.Simulate.Velocity = -3 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mod(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml"), nil); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}
