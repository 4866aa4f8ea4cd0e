package engine

import (
	"math"
	"regexp"
	"strings"
)

// QueryKind classifies what a query is after. Factual lookups have a
// narrow target and keep the retrieval pool tight; conceptual questions
// get a wider pool so the reranker has real headroom.
type QueryKind string

const (
	// KindFactual is a who/what/when/where lookup.
	KindFactual QueryKind = "factual"
	// KindSemantic is an explanatory or thematic question.
	KindSemantic QueryKind = "semantic"
	// KindHybrid is anything neither pattern set claims with confidence.
	KindHybrid QueryKind = "hybrid"
)

var factualPatterns = compilePatterns(
	`^who\s+(is|was|are|were)\s+`,
	`^who\s+(wrote|created|invented|founded|discovered)`,
	`^what\s+(is|was|are|were)\s+the\s+(name|title|capital|population)`,
	`^what\s+(year|date|time|day)`,
	`^what\s+(happened|occurs|occurred)`,
	`^when\s+(did|was|were|is|are)`,
	`^where\s+(is|was|are|were|did|does)`,
	`^how\s+(many|much|long|old|tall)`,
	`^define\s+`,
	`^(definition|meaning)\s+of\s+`,
)

var semanticPatterns = compilePatterns(
	`^how\s+(to|can|do|does|should|would|could)\s+`,
	`^why\s+(is|are|do|does|did|should|would)`,
	`^explain\s+`,
	`^describe\s+`,
	`^tell\s+me\s+about\s+`,
	`^what\s+(are\s+the\s+)?(benefits|advantages|disadvantages|themes|lessons|steps|ways|methods)`,
	`^compare\s+`,
	`^difference\s+between\s+`,
)

var semanticWords = []string{"how", "why", "explain", "describe"}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// classifyQuery scores the query against both pattern sets and returns
// the winning kind with its confidence. A kind needs a score above 0.5
// to win outright; otherwise the query is treated as hybrid.
func classifyQuery(query string) (QueryKind, float64) {
	q := strings.ToLower(strings.TrimSpace(query))

	var factual, semantic float64
	for _, re := range factualPatterns {
		if re.MatchString(q) {
			factual += 0.8
			break
		}
	}
	for _, re := range semanticPatterns {
		if re.MatchString(q) {
			semantic += 0.8
			break
		}
	}

	// Short queries lean factual; explanatory vocabulary anywhere in the
	// query leans semantic.
	if len(strings.Fields(q)) <= 4 {
		factual += 0.2
	}
	for _, w := range semanticWords {
		if strings.Contains(q, w) {
			semantic += 0.3
			break
		}
	}

	switch {
	case factual > semantic && factual > 0.5:
		return KindFactual, factual
	case semantic > factual && semantic > 0.5:
		return KindSemantic, semantic
	default:
		return KindHybrid, math.Max(factual, semantic)
	}
}

// retrievalLimit is the candidate pool size to fetch before reranking.
func (k QueryKind) retrievalLimit(limit int) int {
	if k == KindFactual {
		return limit
	}
	return limit * 2
}
