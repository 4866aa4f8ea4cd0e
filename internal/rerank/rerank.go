// Package rerank orders retrieved candidates with a composite lexical and
// similarity score. Scoring is deterministic: equal inputs always produce
// the same ordering.
package rerank

import (
	"sort"
	"strings"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/retriever"
)

// minTermLength filters out stop-word-sized query terms.
const minTermLength = 4

// Scored pairs a candidate with its composite score.
type Scored struct {
	retriever.Candidate
	Score float64
}

// Reranker computes composite scores from configured weights.
type Reranker struct {
	cfg config.RerankConfig
}

// New creates a Reranker.
func New(cfg config.RerankConfig) *Reranker {
	return &Reranker{cfg: cfg}
}

// Rerank scores every candidate against the query and returns a new slice
// sorted by descending score, truncated to limit (limit <= 0 keeps all).
// The input slice is not modified. Ties fall back to the original
// similarity rank so the ordering is stable across runs.
func (r *Reranker) Rerank(query string, candidates []retriever.Candidate, limit int) []Scored {
	if len(candidates) == 0 {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	terms := queryTerms(normalized)

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{
			Candidate: c,
			Score:     r.score(normalized, terms, c),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Rank < scored[j].Rank
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (r *Reranker) score(normalizedQuery string, terms []string, c retriever.Candidate) float64 {
	text := strings.ToLower(c.Text)
	title := strings.ToLower(c.SectionTitle)

	score := r.cfg.SimilarityWeight * c.Similarity
	score += r.cfg.KeywordWeight * keywordScore(terms, text)
	if normalizedQuery != "" && strings.Contains(text, normalizedQuery) {
		score += r.cfg.ExactWeight
	}
	score += r.cfg.TitleWeight * titleScore(terms, title)
	return score
}

// keywordScore is the fraction of query terms present in the chunk text.
func keywordScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// titleScore counts term hits in the section title, weighted double, capped
// at 1. A chunk from a section whose heading names the topic should beat an
// equally similar chunk from an unrelated section.
func titleScore(terms []string, title string) float64 {
	if len(terms) == 0 || title == "" {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			matched++
		}
	}
	score := 2 * float64(matched) / float64(len(terms))
	if score > 1 {
		score = 1
	}
	return score
}

// queryTerms splits a normalized query into deduplicated significant terms.
func queryTerms(normalized string) []string {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !isWordRune(r)
	})
	seen := make(map[string]struct{}, len(fields))
	var terms []string
	for _, f := range fields {
		if len(f) < minTermLength {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
		r >= 0x80
}
