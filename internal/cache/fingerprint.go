// Package cache provides the two-tier result cache: a small in-process
// session tier and a SQLite-backed persistent tier. Both are keyed by a
// fingerprint that includes the reader's access scope, so a cached result
// can never leak across subscription boundaries.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bookquill/bookquill/internal/scope"
)

// Fingerprint derives the cache key for a query. The query text is
// normalized, the scope sorted and deduplicated, so equivalent requests
// collide and scope-different requests never do.
func Fingerprint(query string, authorScope []int64, limit int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sorted := scope.Normalize(authorScope)

	h := sha256.New()
	fmt.Fprintf(h, "%s\n", normalized)
	for _, a := range sorted {
		fmt.Fprintf(h, "%d,", a)
	}
	fmt.Fprintf(h, "\n%d", limit)
	return hex.EncodeToString(h.Sum(nil))
}
