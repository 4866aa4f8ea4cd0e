package config

// Config is the top-level bookquill configuration, corresponding to .bookquill.yml.
type Config struct {
	DataDir   string          `yaml:"data_dir" koanf:"data_dir"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Search    SearchConfig    `yaml:"search" koanf:"search"`
	Rerank    RerankConfig    `yaml:"rerank" koanf:"rerank"`
	Answer    AnswerConfig    `yaml:"answer" koanf:"answer"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	OpenAIKey string          `yaml:"openai_api_key" koanf:"openai_api_key"`
}

// ChunkingConfig controls how extracted text is split into retrieval units.
type ChunkingConfig struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int `yaml:"chunk_size" koanf:"chunk_size"`
	// Overlap is the token budget carried over between adjacent chunks.
	Overlap int `yaml:"overlap" koanf:"overlap"`
	// SemanticTokenFloor is the minimum section size, in tokens, that can
	// qualify for semantic splitting.
	SemanticTokenFloor int `yaml:"semantic_token_floor" koanf:"semantic_token_floor"`
	// MaxSemanticCalls caps the number of semantic-split calls per document.
	MaxSemanticCalls int `yaml:"max_semantic_calls" koanf:"max_semantic_calls"`
}

// EmbeddingConfig controls the embedding gateway.
type EmbeddingConfig struct {
	Model      string `yaml:"model" koanf:"model"`
	Dimensions int    `yaml:"dimensions" koanf:"dimensions"`
	BatchSize  int    `yaml:"batch_size" koanf:"batch_size"`
	// Concurrency bounds how many embedding sub-batches run in parallel
	// during ingestion.
	Concurrency int `yaml:"concurrency" koanf:"concurrency"`
	// CacheCapacity bounds the in-process query embedding cache.
	CacheCapacity int `yaml:"cache_capacity" koanf:"cache_capacity"`
}

// SearchConfig controls retrieval.
type SearchConfig struct {
	// ScoreThreshold drops matches below this raw similarity.
	ScoreThreshold float64 `yaml:"score_threshold" koanf:"score_threshold"`
	// OverfetchFactor multiplies the requested limit when querying the
	// vector store so the reranker has headroom.
	OverfetchFactor int `yaml:"overfetch_factor" koanf:"overfetch_factor"`
	DefaultLimit    int `yaml:"default_limit" koanf:"default_limit"`
}

// RerankConfig holds the composite scoring weights. These are deployment
// tuning knobs, not derived constants.
type RerankConfig struct {
	SimilarityWeight float64 `yaml:"similarity_weight" koanf:"similarity_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight" koanf:"keyword_weight"`
	ExactWeight      float64 `yaml:"exact_weight" koanf:"exact_weight"`
	TitleWeight      float64 `yaml:"title_weight" koanf:"title_weight"`
}

// AnswerConfig controls answer generation.
type AnswerConfig struct {
	Model string `yaml:"model" koanf:"model"`
	// ContextTokenCeiling bounds the total prompt context assembled from
	// retrieved chunks.
	ContextTokenCeiling int `yaml:"context_token_ceiling" koanf:"context_token_ceiling"`
	MaxAnswerTokens     int `yaml:"max_answer_tokens" koanf:"max_answer_tokens"`
	MaxChunks           int `yaml:"max_chunks" koanf:"max_chunks"`
	// RequestsPerMinute rate-limits LLM calls; 0 disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// CacheConfig controls the session and persistent cache tiers.
type CacheConfig struct {
	SessionCapacity   int `yaml:"session_capacity" koanf:"session_capacity"`
	SessionTTLSeconds int `yaml:"session_ttl_seconds" koanf:"session_ttl_seconds"`
	// SearchTTLSeconds ages out persistent search results.
	SearchTTLSeconds int `yaml:"search_ttl_seconds" koanf:"search_ttl_seconds"`
	// AnswerTTLSeconds ages out persistent answers.
	AnswerTTLSeconds int `yaml:"answer_ttl_seconds" koanf:"answer_ttl_seconds"`
}

// IngestConfig controls directory ingestion.
type IngestConfig struct {
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
