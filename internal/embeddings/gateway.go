package embeddings

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bookquill/bookquill/internal/config"
)

// ServiceError marks a transient failure of the external embedding service.
// Batch failures mark the affected document failed but are retryable.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Gateway fronts the external embedding service. Query embeddings go through
// a bounded in-process cache keyed by normalized text; batch embeddings for
// ingestion run as bounded-concurrency sub-batches.
type Gateway struct {
	embedder    Embedder
	dimensions  int
	batchSize   int
	concurrency int
	cache       *queryCache
}

// NewGateway creates a Gateway over the given embedder.
func NewGateway(embedder Embedder, cfg config.EmbeddingConfig) *Gateway {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = embedder.Dimensions()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	conc := cfg.Concurrency
	if conc < 1 {
		conc = 1
	}
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 512
	}
	return &Gateway{
		embedder:    embedder,
		dimensions:  dims,
		batchSize:   batch,
		concurrency: conc,
		cache:       newQueryCache(capacity),
	}
}

// Dimensions returns the vector dimensionality the index is configured for.
func (g *Gateway) Dimensions() int { return g.dimensions }

// EmbedQuery embeds a single query string. The cached flag reports whether
// the vector came from the in-process cache, in which case the call had zero
// external cost. Identical input text always yields an identical vector.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) (vec []float32, cached bool, err error) {
	key := normalizeKey(text)
	if key == "" {
		return nil, false, &ServiceError{Op: "embed query", Err: fmt.Errorf("empty query text")}
	}

	if v, ok := g.cache.get(key); ok {
		return v, true, nil
	}

	vecs, err := g.embedder.Embed(ctx, []string{strings.TrimSpace(text)})
	if err != nil {
		return nil, false, &ServiceError{Op: "embed query", Err: err}
	}
	if len(vecs) != 1 {
		return nil, false, &ServiceError{Op: "embed query", Err: fmt.Errorf("expected 1 vector, got %d", len(vecs))}
	}
	if err := g.checkDimension(vecs[0]); err != nil {
		return nil, false, err
	}

	g.cache.put(key, vecs[0])
	return vecs[0], false, nil
}

// EmbedBatch embeds chunk texts for ingestion, preserving input order.
// Sub-batches run concurrently up to the configured limit; any sub-batch
// failure fails the whole call so the document can be marked failed and
// retried.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	sem := make(chan struct{}, g.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}

		select {
		case <-ctx.Done():
			mu.Lock()
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			mu.Unlock()
		case sem <- struct{}{}:
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				defer func() { <-sem }()

				vecs, err := g.embedder.Embed(ctx, texts[start:end])
				if err == nil && len(vecs) != end-start {
					err = fmt.Errorf("expected %d vectors, got %d", end-start, len(vecs))
				}
				if err == nil {
					for _, v := range vecs {
						if derr := g.checkDimension(v); derr != nil {
							err = derr
							break
						}
					}
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				copy(results[start:end], vecs)
			}(start, end)
		}
	}

	wg.Wait()
	if firstErr != nil {
		if _, ok := firstErr.(*ServiceError); ok {
			return nil, firstErr
		}
		return nil, &ServiceError{Op: "embed batch", Err: firstErr}
	}
	return results, nil
}

func (g *Gateway) checkDimension(vec []float32) error {
	if len(vec) != g.dimensions {
		return &ServiceError{
			Op:  "dimension check",
			Err: fmt.Errorf("got %d dimensions, index expects %d", len(vec), g.dimensions),
		}
	}
	return nil
}

// CacheLen reports the number of cached query embeddings.
func (g *Gateway) CacheLen() int { return g.cache.len() }

func normalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// queryCache is a concurrency-safe LRU over normalized query text.
type queryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type cacheItem struct {
	key string
	vec []float32
}

func newQueryCache(capacity int) *queryCache {
	return &queryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *queryCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).vec, true
}

func (c *queryCache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheItem{key: key, vec: vec})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheItem).key)
	}
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
