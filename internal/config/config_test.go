package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Chunking.ChunkSize != 500 {
		t.Errorf("expected default chunk_size 500, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.Chunking.Overlap != 75 {
		t.Errorf("expected default overlap 75, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected default dimensions 1536, got %d", cfg.Embedding.Dimensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.bookquill.yml")

	original := DefaultConfig()
	original.Chunking.ChunkSize = 800
	original.Search.DefaultLimit = 20
	original.Answer.Model = "gpt-4o"
	original.Server.Port = 9090

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Chunking.ChunkSize != 800 {
		t.Errorf("chunk_size: got %d, want 800", loaded.Chunking.ChunkSize)
	}
	if loaded.Search.DefaultLimit != 20 {
		t.Errorf("default_limit: got %d, want 20", loaded.Search.DefaultLimit)
	}
	if loaded.Answer.Model != "gpt-4o" {
		t.Errorf("answer model: got %q, want %q", loaded.Answer.Model, "gpt-4o")
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", loaded.Server.Port)
	}
}

func TestSaveOmitsAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yml")

	cfg := DefaultConfig()
	cfg.OpenAIKey = "sk-secret"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if string(data) == "" {
		t.Fatal("empty config written")
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("API key must not be written to disk")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load of missing file should fall back to defaults: %v", err)
	}
	if loaded.Chunking.ChunkSize != 500 {
		t.Errorf("expected defaults, got chunk_size %d", loaded.Chunking.ChunkSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize }},
		{"threshold above one", func(c *Config) { c.Search.ScoreThreshold = 1.5 }},
		{"zero overfetch", func(c *Config) { c.Search.OverfetchFactor = 0 }},
		{"empty model", func(c *Config) { c.Answer.Model = "" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
