// Package ingest runs the document pipeline: extract pages, segment,
// chunk, embed, index. Document status tracks each stage so interrupted
// runs are visible and restartable.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookquill/bookquill/internal/chunker"
	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/embeddings"
	"github.com/bookquill/bookquill/internal/extract"
	"github.com/bookquill/bookquill/internal/llm"
	"github.com/bookquill/bookquill/internal/progress"
	"github.com/bookquill/bookquill/internal/segmenter"
	"github.com/bookquill/bookquill/internal/usage"
	"github.com/bookquill/bookquill/internal/vectordb"
)

// embedBatchSize bounds how many chunk texts go to the gateway per call so
// progress can be reported between batches.
const embedBatchSize = 100

// Pipeline ingests documents end to end.
type Pipeline struct {
	store    *docstore.Store
	vectors  vectordb.VectorStore
	gateway  *embeddings.Gateway
	seg      *segmenter.Segmenter
	engine   *chunker.Engine
	sources  []extract.Source
	tracker  usage.Tracker
	embedCfg config.EmbeddingConfig
	logger   *slog.Logger
}

// Options configures a Pipeline.
type Options struct {
	Store     *docstore.Store
	Vectors   vectordb.VectorStore
	Gateway   *embeddings.Gateway
	Segmenter *segmenter.Segmenter
	Engine    *chunker.Engine
	Sources   []extract.Source
	Tracker   usage.Tracker
	EmbedCfg  config.EmbeddingConfig
	Logger    *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracker == nil {
		opts.Tracker = usage.Nop{}
	}
	if len(opts.Sources) == 0 {
		opts.Sources = []extract.Source{extract.Text{}}
	}
	return &Pipeline{
		store:    opts.Store,
		vectors:  opts.Vectors,
		gateway:  opts.Gateway,
		seg:      opts.Segmenter,
		engine:   opts.Engine,
		sources:  opts.Sources,
		tracker:  opts.Tracker,
		embedCfg: opts.EmbedCfg,
		logger:   opts.Logger,
	}
}

// Ingest processes one document. A document already in ready status is
// skipped unless force is set. Any document that was processed before,
// whether it finished or failed partway, has its index entries dropped
// first so retrieval never sees vectors from a superseded run. reporter
// may be nil.
func (p *Pipeline) Ingest(ctx context.Context, documentID int64, force bool, reporter progress.Reporter) error {
	start := time.Now()

	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == docstore.StatusReady && !force {
		p.logger.Info("document already ingested", "document", doc.ID, "title", doc.Title)
		return nil
	}
	if doc.Status != docstore.StatusPending {
		// Chunks get fresh IDs on every run, so entries indexed by an
		// earlier run would survive as orphans otherwise.
		if err := p.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			return p.fail(ctx, doc.ID, fmt.Errorf("clearing old index entries: %w", err))
		}
	}

	stored, err := p.chunk(ctx, doc)
	if err != nil {
		return p.fail(ctx, doc.ID, err)
	}

	tokens, err := p.embed(ctx, doc, stored, reporter)
	if err != nil {
		return p.fail(ctx, doc.ID, err)
	}

	if err := p.store.UpdateStatus(ctx, doc.ID, docstore.StatusReady, ""); err != nil {
		return err
	}

	if err := p.tracker.Record(ctx, usage.Event{
		Operation:    usage.OpIngest,
		Model:        p.embedCfg.Model,
		TokensIn:     tokens,
		CostEstimate: llm.EstimateCost(p.embedCfg.Model, tokens, 0),
		LatencyMS:    time.Since(start).Milliseconds(),
		Success:      true,
	}); err != nil {
		p.logger.Warn("recording ingest usage failed", "error", err)
	}

	p.logger.Info("document ingested",
		"document", doc.ID, "title", doc.Title,
		"chunks", len(stored), "tokens", tokens,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) chunk(ctx context.Context, doc *docstore.Document) ([]docstore.StoredChunk, error) {
	if err := p.store.UpdateStatus(ctx, doc.ID, docstore.StatusChunking, ""); err != nil {
		return nil, err
	}

	source, err := extract.ForPath(p.sources, doc.FilePath)
	if err != nil {
		return nil, err
	}
	pages, err := source.Pages(ctx, doc.FilePath)
	if err != nil {
		return nil, err
	}

	sections, err := p.seg.Segment(pages)
	if err != nil {
		return nil, fmt.Errorf("segmenting %s: %w", doc.Title, err)
	}

	chunks := p.engine.ChunkSections(ctx, sections)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", doc.Title)
	}

	stored, err := p.store.SaveChunks(ctx, doc, chunks)
	if err != nil {
		return nil, err
	}
	if err := p.store.SetCounts(ctx, doc.ID, len(pages), len(stored)); err != nil {
		return nil, err
	}
	return stored, nil
}

func (p *Pipeline) embed(ctx context.Context, doc *docstore.Document, stored []docstore.StoredChunk, reporter progress.Reporter) (int, error) {
	if err := p.store.UpdateStatus(ctx, doc.ID, docstore.StatusEmbedding, ""); err != nil {
		return 0, err
	}

	if reporter != nil {
		reporter.Start(len(stored))
		defer reporter.Finish()
	}

	totalTokens := 0
	for start := 0; start < len(stored); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(stored) {
			end = len(stored)
		}
		batch := stored[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
			totalTokens += c.TokenCount
		}

		vectors, err := p.gateway.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}

		entries := make([]vectordb.Entry, len(batch))
		for i, c := range batch {
			entries[i] = vectordb.Entry{
				ChunkID: c.ChunkID,
				Vector:  vectors[i],
				Meta: vectordb.Meta{
					AuthorID:     c.AuthorID,
					DocumentID:   c.DocumentID,
					PageNumber:   c.PageNumber,
					SectionTitle: c.SectionTitle,
					Kind:         string(c.Kind),
				},
			}
		}
		if err := p.vectors.Upsert(ctx, entries); err != nil {
			return 0, fmt.Errorf("indexing chunks %d-%d: %w", start, end-1, err)
		}

		if reporter != nil {
			reporter.Update(end, fmt.Sprintf("Embedding %s", doc.Title))
		}
	}
	return totalTokens, nil
}

// fail marks the document failed with the error as reason and returns the
// original error.
func (p *Pipeline) fail(ctx context.Context, documentID int64, cause error) error {
	if err := p.store.UpdateStatus(ctx, documentID, docstore.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("recording ingest failure", "document", documentID, "error", err)
	}
	return cause
}
