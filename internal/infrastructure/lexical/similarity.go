package lexical

import (
	"strings"
	"unicode/utf8"
)

// SimilarityFunc scores a normalized query against a normalized candidate
// string. Results must lie in [0,1]; 0 means no match.
type SimilarityFunc func(query, candidate string) float64

const (
	ScorerContainment = "containment"
	ScorerLevenshtein = "levenshtein"
)

// ScorerByName resolves a configured scorer, defaulting to containment.
func ScorerByName(name string) SimilarityFunc {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScorerLevenshtein:
		return LevenshteinSimilarity
	default:
		return ContainmentSimilarity
	}
}

// ContainmentSimilarity is the baseline scorer: 1 when the candidate contains
// the query, 0 otherwise.
func ContainmentSimilarity(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if strings.Contains(candidate, query) {
		return 1
	}
	return 0
}

// LevenshteinSimilarity grades partial matches. Equality scores 1, containment
// in either direction scores by length ratio, anything else by normalized edit
// distance.
func LevenshteinSimilarity(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if query == candidate {
		return 1
	}

	ql := utf8.RuneCountInString(query)
	cl := utf8.RuneCountInString(candidate)
	longer := max(ql, cl)

	if strings.Contains(candidate, query) {
		return 0.6 + 0.35*float64(ql)/float64(cl)
	}
	if strings.Contains(query, candidate) {
		return 0.5 + 0.35*float64(cl)/float64(ql)
	}

	dist := levenshteinDistance([]rune(query), []rune(candidate))
	score := 1 - float64(dist)/float64(longer)
	if score < 0 {
		return 0
	}
	// Edit-distance-only matches never outrank a containment hit.
	return score * 0.6
}

func levenshteinDistance(a, b []rune) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
