package config

// DefaultExcludes are glob patterns skipped during directory ingestion.
var DefaultExcludes = []string{
	".git/**",
	"*.tmp",
	"*.log",
	".DS_Store",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".bookquill",
		Chunking: ChunkingConfig{
			ChunkSize:          500,
			Overlap:            75,
			SemanticTokenFloor: 1200,
			MaxSemanticCalls:   30,
		},
		Embedding: EmbeddingConfig{
			Model:         "text-embedding-3-small",
			Dimensions:    1536,
			BatchSize:     100,
			Concurrency:   4,
			CacheCapacity: 512,
		},
		Search: SearchConfig{
			ScoreThreshold:  0.30,
			OverfetchFactor: 2,
			DefaultLimit:    10,
		},
		Rerank: RerankConfig{
			SimilarityWeight: 0.40,
			KeywordWeight:    0.25,
			ExactWeight:      0.25,
			TitleWeight:      0.10,
		},
		Answer: AnswerConfig{
			Model:               "gpt-4o-mini",
			ContextTokenCeiling: 4000,
			MaxAnswerTokens:     1500,
			MaxChunks:           5,
			RequestsPerMinute:   60,
		},
		Cache: CacheConfig{
			SessionCapacity:   256,
			SessionTTLSeconds: 3600,
			SearchTTLSeconds:  3600,
			AnswerTTLSeconds:  86400,
		},
		Ingest: IngestConfig{
			Include: []string{"**/*.txt"},
			Exclude: DefaultExcludes,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}
