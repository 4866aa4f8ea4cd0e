package embeddings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bookquill/bookquill/internal/config"
)

// fakeEmbedder produces deterministic vectors derived from text length.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	dims  int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		for j := range v {
			v[j] = float32(len(t)) / float32(j+1)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Name() string    { return "fake" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testGateway(dims int) (*Gateway, *fakeEmbedder) {
	fe := &fakeEmbedder{dims: dims}
	g := NewGateway(fe, config.EmbeddingConfig{
		Dimensions:    dims,
		BatchSize:     2,
		Concurrency:   2,
		CacheCapacity: 3,
	})
	return g, fe
}

func TestEmbedQueryCachesByNormalizedText(t *testing.T) {
	g, fe := testGateway(4)
	ctx := context.Background()

	v1, cached, err := g.EmbedQuery(ctx, "What is confirmation bias?")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if cached {
		t.Error("first call must miss the cache")
	}

	// Same text modulo case and whitespace hits the cache.
	v2, cached, err := g.EmbedQuery(ctx, "  what IS confirmation bias?  ")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if !cached {
		t.Error("second call must hit the cache")
	}
	if fe.callCount() != 1 {
		t.Errorf("embedder calls: got %d, want 1", fe.callCount())
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatal("cached vector differs from original")
		}
	}
}

func TestEmbedQueryEmptyTextFails(t *testing.T) {
	g, _ := testGateway(4)
	_, _, err := g.EmbedQuery(context.Background(), "   ")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
}

func TestEmbedQuerySurfacesServiceError(t *testing.T) {
	fe := &fakeEmbedder{dims: 4, err: errors.New("upstream down")}
	g := NewGateway(fe, config.EmbeddingConfig{Dimensions: 4})

	vec, _, err := g.EmbedQuery(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if vec != nil {
		t.Error("must not return a vector on error")
	}
}

func TestCacheEviction(t *testing.T) {
	g, fe := testGateway(4)
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three", "four"} {
		if _, _, err := g.EmbedQuery(ctx, q); err != nil {
			t.Fatalf("EmbedQuery(%q): %v", q, err)
		}
	}
	if g.CacheLen() != 3 {
		t.Errorf("cache length: got %d, want capacity 3", g.CacheLen())
	}

	// "one" was evicted; re-embedding it calls the service again.
	before := fe.callCount()
	if _, cached, _ := g.EmbedQuery(ctx, "one"); cached {
		t.Error("evicted entry must not be a cache hit")
	}
	if fe.callCount() != before+1 {
		t.Error("expected a new service call after eviction")
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	g, _ := testGateway(4)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := g.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}

	// The fake derives vector values from text length, so batched output
	// must agree with embedding each text on its own.
	for i, text := range texts {
		single, serr := (&fakeEmbedder{dims: 4}).Embed(context.Background(), []string{text})
		if serr != nil {
			t.Fatal(serr)
		}
		if vecs[i][0] != single[0][0] {
			t.Errorf("vector %d out of order", i)
		}
	}
}

func TestEmbedBatchDimensionMismatch(t *testing.T) {
	fe := &fakeEmbedder{dims: 3}
	g := NewGateway(fe, config.EmbeddingConfig{Dimensions: 8, BatchSize: 10})

	_, err := g.EmbedBatch(context.Background(), []string{"text"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected dimension ServiceError, got %v", err)
	}
}

func TestEmbedBatchFailureFailsWhole(t *testing.T) {
	fe := &fakeEmbedder{dims: 4, err: errors.New("rate limited")}
	g := NewGateway(fe, config.EmbeddingConfig{Dimensions: 4, BatchSize: 2, Concurrency: 2})

	_, err := g.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	if err == nil {
		t.Fatal("expected batch failure")
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	g, fe := testGateway(4)
	vecs, err := g.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("empty input: got %v, %v", vecs, err)
	}
	if fe.callCount() != 0 {
		t.Error("no service call expected for empty input")
	}
}
