// Package retriever turns a query embedding into access-filtered chunk
// candidates with their full text attached.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/vectordb"
)

// ErrAccessScopeEmpty is returned when the reader has no subscriptions.
// Retrieval never proceeds without a scope; an empty scope is a closed door,
// not an open one.
var ErrAccessScopeEmpty = errors.New("retriever: access scope is empty")

// Candidate is a retrieved chunk with provenance and the raw similarity the
// vector store reported. Rank is the position in the similarity ordering,
// starting at 0; the reranker uses it for stable tie-breaking.
type Candidate struct {
	ChunkID      string
	DocumentID   int64
	AuthorID     int64
	Title        string
	SectionTitle string
	PageNumber   int
	Kind         string
	Text         string
	Similarity   float64
	Rank         int
}

// ChunkSource resolves chunk ids to stored chunks.
type ChunkSource interface {
	GetChunksByID(ctx context.Context, ids []string) (map[string]docstore.StoredChunk, error)
	GetDocument(ctx context.Context, id int64) (*docstore.Document, error)
}

// Retriever queries the vector store within a reader's scope and enriches
// matches with chunk text and document titles.
type Retriever struct {
	vectors vectordb.VectorStore
	chunks  ChunkSource
	cfg     config.SearchConfig
	logger  *slog.Logger
}

// New creates a Retriever.
func New(vectors vectordb.VectorStore, chunks ChunkSource, cfg config.SearchConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{vectors: vectors, chunks: chunks, cfg: cfg, logger: logger}
}

// Retrieve returns up to overfetch-limit candidates above the score
// threshold, restricted to the given author scope. The caller is expected
// to rerank and cut the result down to the requested limit.
func (r *Retriever) Retrieve(ctx context.Context, queryVector []float32, scope []int64, limit int) ([]Candidate, error) {
	if len(scope) == 0 {
		return nil, ErrAccessScopeEmpty
	}
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}

	overfetch := limit * r.cfg.OverfetchFactor
	if overfetch < limit {
		overfetch = limit
	}

	matches, err := r.vectors.Query(ctx, queryVector, scope, overfetch)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	var (
		kept []vectordb.Match
		ids  []string
	)
	for _, m := range matches {
		if float64(m.Similarity) < r.cfg.ScoreThreshold {
			continue
		}
		kept = append(kept, m)
		ids = append(ids, m.ChunkID)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	byID, err := r.chunks.GetChunksByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading chunk text: %w", err)
	}

	titles := make(map[int64]string)
	candidates := make([]Candidate, 0, len(kept))
	for _, m := range kept {
		stored, ok := byID[m.ChunkID]
		if !ok {
			// Index entry without a chunk row. Stale after a partial
			// re-ingest; skip rather than serve textless results.
			r.logger.Warn("indexed chunk missing from store", "chunk_id", m.ChunkID)
			continue
		}

		title, ok := titles[stored.DocumentID]
		if !ok {
			doc, derr := r.chunks.GetDocument(ctx, stored.DocumentID)
			if derr != nil {
				if !errors.Is(derr, docstore.ErrNotFound) {
					return nil, fmt.Errorf("loading document %d: %w", stored.DocumentID, derr)
				}
				doc = &docstore.Document{}
			}
			title = doc.Title
			titles[stored.DocumentID] = title
		}

		candidates = append(candidates, Candidate{
			ChunkID:      m.ChunkID,
			DocumentID:   stored.DocumentID,
			AuthorID:     stored.AuthorID,
			Title:        title,
			SectionTitle: stored.SectionTitle,
			PageNumber:   stored.PageNumber,
			Kind:         string(stored.Kind),
			Text:         stored.Text,
			Similarity:   float64(m.Similarity),
			Rank:         len(candidates),
		})
	}
	return candidates, nil
}
