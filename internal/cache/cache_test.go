package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bookquill/bookquill/internal/db"
)

func TestFingerprintNormalizesQueryAndScope(t *testing.T) {
	a := Fingerprint("  How does focus WORK?  ", []int64{3, 1, 3}, 5)
	b := Fingerprint("how does focus work?", []int64{1, 3}, 5)
	if a != b {
		t.Error("equivalent requests produced different fingerprints")
	}
}

func TestFingerprintSeparatesScopes(t *testing.T) {
	base := Fingerprint("query", []int64{1, 2}, 5)
	if got := Fingerprint("query", []int64{1}, 5); got == base {
		t.Error("different scopes share a fingerprint")
	}
	if got := Fingerprint("query", []int64{1, 2}, 10); got == base {
		t.Error("different limits share a fingerprint")
	}
	if got := Fingerprint("other query", []int64{1, 2}, 5); got == base {
		t.Error("different queries share a fingerprint")
	}
}

func TestSessionGetPut(t *testing.T) {
	s := NewSession(4, 3600)

	if _, ok := s.Get("fp"); ok {
		t.Error("hit on empty cache")
	}
	s.Put("fp", "payload")
	got, ok := s.Get("fp")
	if !ok || got != "payload" {
		t.Errorf("got %q, %v", got, ok)
	}

	hits, misses := s.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestSessionEvictsLRU(t *testing.T) {
	s := NewSession(2, 3600)
	s.Put("a", "1")
	s.Put("b", "2")
	s.Get("a") // refresh a
	s.Put("c", "3")

	if _, ok := s.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := s.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestSessionTTLExpiry(t *testing.T) {
	s := NewSession(4, 60)
	now := time.Now()
	s.now = func() time.Time { return now }

	s.Put("fp", "payload")
	now = now.Add(61 * time.Second)
	if _, ok := s.Get("fp"); ok {
		t.Error("expired entry served")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry retained, Len = %d", s.Len())
	}
}

func TestSessionZeroCapacityDisabled(t *testing.T) {
	s := NewSession(0, 3600)
	s.Put("fp", "payload")
	if _, ok := s.Get("fp"); ok {
		t.Error("disabled cache returned a hit")
	}
}

func testPersistent(t *testing.T, searchTTL, answerTTL int) *Persistent {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewPersistent(database, searchTTL, answerTTL)
}

func TestPersistentSearchRoundTrip(t *testing.T) {
	p := testPersistent(t, 3600, 3600)
	ctx := context.Background()

	if _, ok, err := p.GetSearch(ctx, "fp"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	if err := p.PutSearch(ctx, "fp", `{"results":[]}`); err != nil {
		t.Fatalf("PutSearch: %v", err)
	}
	payload, ok, err := p.GetSearch(ctx, "fp")
	if err != nil || !ok || payload != `{"results":[]}` {
		t.Errorf("got %q, ok=%v, err=%v", payload, ok, err)
	}
}

func TestPersistentSearchOverwrite(t *testing.T) {
	p := testPersistent(t, 3600, 3600)
	ctx := context.Background()

	if err := p.PutSearch(ctx, "fp", "old"); err != nil {
		t.Fatal(err)
	}
	if err := p.PutSearch(ctx, "fp", "new"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	payload, ok, err := p.GetSearch(ctx, "fp")
	if err != nil || !ok || payload != "new" {
		t.Errorf("got %q, ok=%v, err=%v", payload, ok, err)
	}
}

func TestPersistentAnswerRoundTrip(t *testing.T) {
	p := testPersistent(t, 3600, 3600)
	ctx := context.Background()

	if err := p.PutAnswer(ctx, "fp", "The answer.", `[{"chunk_id":"c1"}]`); err != nil {
		t.Fatalf("PutAnswer: %v", err)
	}
	answer, sources, ok, err := p.GetAnswer(ctx, "fp")
	if err != nil || !ok {
		t.Fatalf("GetAnswer: ok=%v err=%v", ok, err)
	}
	if answer != "The answer." || sources != `[{"chunk_id":"c1"}]` {
		t.Errorf("got answer=%q sources=%q", answer, sources)
	}
}

func TestPersistentExpiry(t *testing.T) {
	// TTL of 1 second with an entry backdated beyond it.
	p := testPersistent(t, 1, 1)
	ctx := context.Background()

	if err := p.PutSearch(ctx, "fp", "payload"); err != nil {
		t.Fatal(err)
	}
	_, err := p.db.ExecContext(ctx,
		"UPDATE search_cache SET created_at = datetime('now', '-1 hour') WHERE fingerprint = ?", "fp")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := p.GetSearch(ctx, "fp"); err != nil || ok {
		t.Errorf("expired entry served: ok=%v err=%v", ok, err)
	}
}

func TestPersistentPrune(t *testing.T) {
	p := testPersistent(t, 1, 1)
	ctx := context.Background()

	if err := p.PutSearch(ctx, "old", "x"); err != nil {
		t.Fatal(err)
	}
	if err := p.PutAnswer(ctx, "old", "x", "[]"); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"search_cache", "answer_cache"} {
		_, err := p.db.ExecContext(ctx,
			"UPDATE "+table+" SET created_at = datetime('now', '-1 hour')")
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := p.PutSearch(ctx, "fresh", "y"); err != nil {
		t.Fatal(err)
	}

	n, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}
	if _, ok, _ := p.GetSearch(ctx, "fresh"); !ok {
		t.Error("fresh entry was pruned")
	}
}
