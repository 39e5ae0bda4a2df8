// Package names provides tolerant player-name lookup. The similarity scorer
// is an injected capability so callers can swap the metric without touching
// lookup control flow.
package names

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Scorer returns a similarity score between two strings on a 0-100 scale.
type Scorer func(a, b string) float64

// DefaultThreshold is the minimum score a fuzzy candidate must reach.
// Lookups never silently match below it.
const DefaultThreshold = 70.0

// LevenshteinScorer scores by normalized edit distance, 100 meaning equal.
func LevenshteinScorer(a, b string) float64 {
	return levenshtein.Match(a, b, nil) * 100
}

// Normalize folds a player name to its lookup key: lowercased with all
// spaces removed. Leaderboard identity uses this key while display keeps the
// original casing.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}

// Matcher resolves names against a fixed candidate list.
type Matcher struct {
	scorer    Scorer
	threshold float64
}

// NewMatcher builds a Matcher. A nil scorer falls back to LevenshteinScorer,
// a zero threshold to DefaultThreshold.
func NewMatcher(scorer Scorer, threshold float64) *Matcher {
	if scorer == nil {
		scorer = LevenshteinScorer
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{scorer: scorer, threshold: threshold}
}

// Find returns the index of the best match for name among candidates: an
// exact match first, otherwise the first candidate scoring at or above the
// threshold. ok is false when nothing qualifies.
func (m *Matcher) Find(name string, candidates []string) (int, bool) {
	for i, c := range candidates {
		if c == name {
			return i, true
		}
	}
	for i, c := range candidates {
		if m.scorer(c, name) >= m.threshold {
			return i, true
		}
	}
	return -1, false
}
