package usage

import (
	"context"
	"testing"
	"time"

	"github.com/bookquill/bookquill/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestRecordAndQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	event := Event{
		ReaderID:     7,
		Operation:    OpAnswer,
		Query:        "what is deep work",
		Model:        "gpt-4o-mini",
		TokensIn:     1200,
		TokensOut:    340,
		CostEstimate: 0.000384,
		LatencyMS:    2100,
		Success:      true,
	}
	if err := s.Record(ctx, event); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := s.Query(ctx, Filter{ReaderID: 7})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	if got.ID == "" {
		t.Error("id not generated")
	}
	if got.Operation != OpAnswer || got.TokensIn != 1200 || !got.Success {
		t.Errorf("got %+v", got)
	}
}

func TestQueryFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, e := range []Event{
		{ReaderID: 1, Operation: OpSearch, Success: true},
		{ReaderID: 1, Operation: OpAnswer, Success: true},
		{ReaderID: 2, Operation: OpSearch, Success: false, ErrorMessage: "timeout"},
	} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	searches, err := s.Query(ctx, Filter{Operation: OpSearch})
	if err != nil {
		t.Fatal(err)
	}
	if len(searches) != 2 {
		t.Errorf("got %d search events, want 2", len(searches))
	}

	reader2, err := s.Query(ctx, Filter{ReaderID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(reader2) != 1 || reader2[0].Success {
		t.Errorf("got %+v", reader2)
	}

	future := time.Now().UTC().Add(time.Hour)
	none, err := s.Query(ctx, Filter{Since: &future})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("future filter returned %d events", len(none))
	}
}

func TestSummarize(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, e := range []Event{
		{Operation: OpSearch, TokensIn: 10, CostEstimate: 0.001, Success: true},
		{Operation: OpSearch, TokensIn: 20, CostEstimate: 0.002, Success: false},
		{Operation: OpAnswer, TokensIn: 100, TokensOut: 50, CostEstimate: 0.01, Success: true},
	} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := s.Summarize(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	// Sorted by operation: answer, search.
	answer, search := summaries[0], summaries[1]
	if answer.Operation != OpAnswer || answer.Count != 1 || answer.TokensOut != 50 {
		t.Errorf("answer summary = %+v", answer)
	}
	if search.Operation != OpSearch || search.Count != 2 || search.TokensIn != 30 {
		t.Errorf("search summary = %+v", search)
	}
	if search.Failures != 1 {
		t.Errorf("search failures = %d, want 1", search.Failures)
	}
}

func TestNopTracker(t *testing.T) {
	var tracker Tracker = Nop{}
	if err := tracker.Record(context.Background(), Event{Operation: OpSearch}); err != nil {
		t.Errorf("Nop.Record: %v", err)
	}
}
