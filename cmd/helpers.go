package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bookquill/bookquill/internal/answer"
	"github.com/bookquill/bookquill/internal/cache"
	"github.com/bookquill/bookquill/internal/chunker"
	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/db"
	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/embeddings"
	"github.com/bookquill/bookquill/internal/engine"
	"github.com/bookquill/bookquill/internal/ingest"
	"github.com/bookquill/bookquill/internal/llm"
	"github.com/bookquill/bookquill/internal/rerank"
	"github.com/bookquill/bookquill/internal/retriever"
	"github.com/bookquill/bookquill/internal/scope"
	"github.com/bookquill/bookquill/internal/segmenter"
	"github.com/bookquill/bookquill/internal/usage"
	"github.com/bookquill/bookquill/internal/vectordb"
)

// app bundles the wired-up stores and services the commands share.
type app struct {
	cfg      *config.Config
	database *db.DB
	docs     *docstore.Store
	scopes   *scope.Store
	vectors  vectordb.VectorStore
	gateway  *embeddings.Gateway
	tracker  *usage.Store
	engine   *engine.Engine
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `bookquill init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the SQLite library under the configured data directory.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}
	return db.Open(filepath.Join(cfg.DataDir, "library.db"))
}

// vectorDir is where the vector index persists between runs.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectors")
}

// newApp wires the full retrieval and ingestion stack. It requires an
// OpenAI API key since both embedding and answering call the API.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("an OpenAI API key is required; set OPENAI_API_KEY")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	logger := slog.Default()
	embedder := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, embeddings.OpenAIModel(cfg.Embedding.Model))
	gateway := embeddings.NewGateway(embedder, cfg.Embedding)

	vectors, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	dir := vectorDir(cfg)
	if err := vectors.Load(ctx, dir); err != nil {
		// A missing index is normal before the first ingest.
		logger.Debug("vector index not loaded", "dir", dir, "error", err)
	}

	provider, err := llm.NewProvider(cfg.OpenAIKey, cfg.Answer.Model, cfg.Answer.RequestsPerMinute)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating answer provider: %w", err)
	}
	counter := segmenter.NewCounter()

	docs := docstore.NewStore(database)
	scopes := scope.NewStore(database)
	tracker := usage.NewStore(database)

	a := &app{
		cfg:      cfg,
		database: database,
		docs:     docs,
		scopes:   scopes,
		vectors:  vectors,
		gateway:  gateway,
		tracker:  tracker,
		logger:   logger,
	}

	a.engine = engine.New(engine.Options{
		Config:     cfg,
		Gateway:    gateway,
		Retriever:  retriever.New(vectors, docs, cfg.Search, logger),
		Reranker:   rerank.New(cfg.Rerank),
		Answerer:   answer.New(provider, counter, cfg.Answer, logger),
		Resolver:   scopes,
		Session:    cache.NewSession(cfg.Cache.SessionCapacity, cfg.Cache.SessionTTLSeconds),
		Persistent: cache.NewPersistent(database, cfg.Cache.SearchTTLSeconds, cfg.Cache.AnswerTTLSeconds),
		Tracker:    tracker,
		Logger:     logger,
	})

	a.pipeline = ingest.New(ingest.Options{
		Store:     docs,
		Vectors:   vectors,
		Gateway:   gateway,
		Segmenter: segmenter.New(counter),
		Engine:    chunker.NewEngine(cfg.Chunking, counter, chunker.ParagraphSplitter{}),
		Tracker:   tracker,
		EmbedCfg:  cfg.Embedding,
		Logger:    logger,
	})

	return a, nil
}

// persistVectors flushes the vector index to disk.
func (a *app) persistVectors(ctx context.Context) error {
	if err := a.vectors.Persist(ctx, vectorDir(a.cfg)); err != nil {
		return fmt.Errorf("persisting vector index: %w", err)
	}
	return nil
}

func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
}
