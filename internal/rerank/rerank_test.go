package rerank

import (
	"reflect"
	"testing"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/retriever"
)

func testWeights() config.RerankConfig {
	return config.RerankConfig{
		SimilarityWeight: 0.40,
		KeywordWeight:    0.25,
		ExactWeight:      0.25,
		TitleWeight:      0.10,
	}
}

func TestKeywordOverlapBeatsRawSimilarity(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "similar", Text: "Completely unrelated prose about gardening.", Similarity: 0.80, Rank: 0},
		{ChunkID: "relevant", Text: "Deliberate practice builds expertise over time.", Similarity: 0.70, Rank: 1},
	}

	got := r.Rerank("deliberate practice expertise", candidates, 0)
	if got[0].ChunkID != "relevant" {
		t.Errorf("top = %s, want relevant (keyword overlap should outweigh 0.10 similarity gap)", got[0].ChunkID)
	}
}

func TestExactPhraseBonus(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "scattered", Text: "Practice that is deliberate helps.", Similarity: 0.5, Rank: 0},
		{ChunkID: "exact", Text: "The key is deliberate practice every day.", Similarity: 0.5, Rank: 1},
	}

	got := r.Rerank("deliberate practice", candidates, 0)
	if got[0].ChunkID != "exact" {
		t.Errorf("top = %s, want exact phrase match", got[0].ChunkID)
	}
}

func TestTitleMatchBreaksEvenCandidates(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "plain", Text: "Deliberate practice matters.", SectionTitle: "Odds and Ends", Similarity: 0.5, Rank: 0},
		{ChunkID: "titled", Text: "Deliberate practice matters.", SectionTitle: "Deliberate Practice", Similarity: 0.5, Rank: 1},
	}

	got := r.Rerank("deliberate practice", candidates, 0)
	if got[0].ChunkID != "titled" {
		t.Errorf("top = %s, want section-title match", got[0].ChunkID)
	}
}

func TestTiesFallBackToOriginalRank(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "first", Text: "same text", Similarity: 0.6, Rank: 0},
		{ChunkID: "second", Text: "same text", Similarity: 0.6, Rank: 1},
	}

	got := r.Rerank("unrelated query words", candidates, 0)
	if got[0].ChunkID != "first" || got[1].ChunkID != "second" {
		t.Errorf("tie order = %s, %s", got[0].ChunkID, got[1].ChunkID)
	}
}

func TestRerankTruncatesToLimit(t *testing.T) {
	r := New(testWeights())
	candidates := make([]retriever.Candidate, 6)
	for i := range candidates {
		candidates[i] = retriever.Candidate{ChunkID: string(rune('a' + i)), Similarity: float64(6-i) / 10, Rank: i}
	}

	got := r.Rerank("query", candidates, 3)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "low", Text: "nothing relevant", Similarity: 0.1, Rank: 0},
		{ChunkID: "high", Text: "deliberate practice", Similarity: 0.9, Rank: 1},
	}
	before := make([]retriever.Candidate, len(candidates))
	copy(before, candidates)

	r.Rerank("deliberate practice", candidates, 0)
	if !reflect.DeepEqual(candidates, before) {
		t.Error("input slice was reordered")
	}
}

func TestRerankDeterministic(t *testing.T) {
	r := New(testWeights())
	candidates := []retriever.Candidate{
		{ChunkID: "a", Text: "deliberate work", Similarity: 0.61, Rank: 0},
		{ChunkID: "b", Text: "practice daily", Similarity: 0.60, Rank: 1},
		{ChunkID: "c", Text: "deliberate practice", Similarity: 0.59, Rank: 2},
	}

	first := r.Rerank("deliberate practice", candidates, 0)
	for i := 0; i < 5; i++ {
		again := r.Rerank("deliberate practice", candidates, 0)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different ordering", i)
		}
	}
}

func TestQueryTermsFiltering(t *testing.T) {
	terms := queryTerms("how do i build deep focus focus")
	if want := []string{"build", "deep", "focus"}; !reflect.DeepEqual(terms, want) {
		t.Errorf("terms = %v, want %v", terms, want)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := New(testWeights())
	if got := r.Rerank("query", nil, 5); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
