package vectordb

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore is a VectorStore backed by a plain in-process map with
// brute-force cosine scoring. It backs tests and small single-author
// libraries where the chromem index is overkill.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Upsert(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ChunkID == "" {
			return fmt.Errorf("entry with empty chunk id")
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %s has no vector", e.ChunkID)
		}
		s.entries[e.ChunkID] = e
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, scope []int64, k int) ([]Match, error) {
	if k <= 0 || len(scope) == 0 {
		return nil, nil
	}
	inScope := make(map[int64]struct{}, len(scope))
	for _, a := range scope {
		inScope[a] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, e := range s.entries {
		if _, ok := inScope[e.Meta.AuthorID]; !ok {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    e.ChunkID,
			Meta:       e.Meta,
			Similarity: cosine(vector, e.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByDocument(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.Meta.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *MemoryStore) Persist(_ context.Context, dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Create(filepath.Join(dir, "vectors.gob"))
	if err != nil {
		return fmt.Errorf("creating vector snapshot: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s.entries); err != nil {
		return fmt.Errorf("encoding vector snapshot: %w", err)
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, dir string) error {
	f, err := os.Open(filepath.Join(dir, "vectors.gob"))
	if err != nil {
		return fmt.Errorf("opening vector snapshot: %w", err)
	}
	defer f.Close()

	entries := make(map[string]Entry)
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("decoding vector snapshot: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
