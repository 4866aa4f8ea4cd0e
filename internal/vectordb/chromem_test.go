package vectordb

import (
	"context"
	"testing"
)

// Test vectors are picked so similarity ordering is obvious: the closer a
// vector's direction is to the query (1,0,0), the higher its score.
func testEntries() []Entry {
	return []Entry{
		{
			ChunkID: "a1",
			Vector:  []float32{1, 0, 0},
			Meta:    Meta{AuthorID: 1, DocumentID: 10, PageNumber: 1, Kind: "fixed"},
		},
		{
			ChunkID: "a2",
			Vector:  []float32{0.9, 0.1, 0},
			Meta:    Meta{AuthorID: 1, DocumentID: 10, PageNumber: 2, Kind: "fixed"},
		},
		{
			ChunkID: "b1",
			Vector:  []float32{0.95, 0.05, 0},
			Meta:    Meta{AuthorID: 2, DocumentID: 20, PageNumber: 1, Kind: "semantic"},
		},
		{
			ChunkID: "c1",
			Vector:  []float32{0, 1, 0},
			Meta:    Meta{AuthorID: 3, DocumentID: 30, PageNumber: 1, Kind: "structural"},
		},
	}
}

func testChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(nil)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := s.Upsert(context.Background(), testEntries()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return s
}

func TestQueryRespectsScope(t *testing.T) {
	s := testChromemStore(t)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Meta.AuthorID != 1 {
			t.Errorf("chunk %s from author %d leaked into scope [1]", m.ChunkID, m.Meta.AuthorID)
		}
	}
}

func TestQueryMergesAuthorsAndSortsBySimilarity(t *testing.T) {
	s := testChromemStore(t)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1, 2}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	want := []string{"a1", "b1", "a2"}
	for i, id := range want {
		if matches[i].ChunkID != id {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].ChunkID, id)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches not sorted by similarity at %d", i)
		}
	}
}

func TestQueryTruncatesToK(t *testing.T) {
	s := testChromemStore(t)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1, 2, 3}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ChunkID != "a1" || matches[1].ChunkID != "b1" {
		t.Errorf("got %s, %s", matches[0].ChunkID, matches[1].ChunkID)
	}
}

func TestQueryEmptyScopeReturnsNothing(t *testing.T) {
	s := testChromemStore(t)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, nil, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("empty scope returned %d matches", len(matches))
	}
}

func TestQueryEmptyStore(t *testing.T) {
	s, err := NewChromemStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if matches != nil {
		t.Errorf("got %v, want nil", matches)
	}
}

func TestDeleteByDocument(t *testing.T) {
	s := testChromemStore(t)

	if err := s.DeleteByDocument(context.Background(), 10); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if got := s.Count(); got != 2 {
		t.Errorf("Count = %d after delete, want 2", got)
	}

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("author 1 still has %d indexed chunks", len(matches))
	}
}

func TestPersistAndLoad(t *testing.T) {
	s := testChromemStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	if err := s.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored, err := NewChromemStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := restored.Count(); got != 4 {
		t.Errorf("Count = %d after load, want 4", got)
	}

	matches, err := restored.Query(ctx, []float32{1, 0, 0}, []int64{1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches after load, want 2", len(matches))
	}
}
