package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .bookquill.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to bookquill! Let's configure your library.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding model.
	embedPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{
			"text-embedding-3-small — 1536 dims, cheap",
			"text-embedding-3-large — 3072 dims, highest quality",
		},
	}
	idx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model selection: %w", err)
	}
	if idx == 1 {
		cfg.Embedding.Model = "text-embedding-3-large"
		cfg.Embedding.Dimensions = 3072
	}

	// 2. Answer model.
	modelPrompt := promptui.Select{
		Label: "Select answer model",
		Items: []string{"gpt-4o-mini", "gpt-4o"},
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("answer model selection: %w", err)
	}
	cfg.Answer.Model = model

	// 3. Chunk size.
	chunkPrompt := promptui.Prompt{
		Label:   "Chunk size in tokens",
		Default: strconv.Itoa(cfg.Chunking.ChunkSize),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	chunkStr, err := chunkPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Chunking.ChunkSize, _ = strconv.Atoi(chunkStr)

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("must be a valid port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(".bookquill.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration saved to .bookquill.yml")
	return cfg, nil
}
