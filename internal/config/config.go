package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BOOKQUILL_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: BOOKQUILL_SERVER.PORT -> server.port, etc.
	if err := k.Load(env.Provider("BOOKQUILL_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "BOOKQUILL_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// The API key is usually supplied outside the config file.
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path. The API key is
// never written to disk.
func (c *Config) Save(path string) error {
	clone := *c
	clone.OpenAIKey = ""

	data, err := yamlv3.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must be in [0, chunk_size)")
	}
	if c.Chunking.MaxSemanticCalls < 0 {
		return fmt.Errorf("chunking.max_semantic_calls must be non-negative")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive")
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold > 1 {
		return fmt.Errorf("search.score_threshold must be in [0, 1]")
	}
	if c.Search.OverfetchFactor < 1 {
		return fmt.Errorf("search.overfetch_factor must be at least 1")
	}
	if w := c.Rerank.SimilarityWeight + c.Rerank.KeywordWeight + c.Rerank.ExactWeight + c.Rerank.TitleWeight; w <= 0 {
		return fmt.Errorf("rerank weights must sum to a positive value")
	}
	if c.Answer.Model == "" {
		return fmt.Errorf("answer.model is required")
	}
	if c.Answer.ContextTokenCeiling <= 0 {
		return fmt.Errorf("answer.context_token_ceiling must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}
	return nil
}
