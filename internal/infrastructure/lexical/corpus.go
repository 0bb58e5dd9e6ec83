package lexical

import (
	"sort"
	"strings"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

// DefaultSearchLimit applies when a caller passes a non-positive limit.
const DefaultSearchLimit = 20

type entry struct {
	record   *domain.FoodRecord
	name     string
	aliases  []string
	category string
}

// Corpus is an immutable search view over one reference snapshot. All
// methods are pure and safe for concurrent use.
type Corpus struct {
	entries []entry
}

// NewCorpus indexes records in id order so equal scores rank deterministically.
func NewCorpus(records []*domain.FoodRecord) *Corpus {
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		aliases := make([]string, 0, len(rec.Aliases))
		for _, alias := range rec.Aliases {
			if a := NormalizeSearch(alias); a != "" {
				aliases = append(aliases, a)
			}
		}
		entries = append(entries, entry{
			record:   rec,
			name:     NormalizeSearch(rec.Name),
			aliases:  aliases,
			category: NormalizeSearch(rec.Category),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].record.ID < entries[j].record.ID
	})
	return &Corpus{entries: entries}
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Partial returns records whose name or an alias contains the query. Name
// equality ranks first, then name prefix, then name containment, then alias hits.
func (c *Corpus) Partial(query string, limit int) []*domain.FoodRecord {
	q := NormalizeSearch(query)
	if q == "" || c.Len() == 0 {
		return []*domain.FoodRecord{}
	}
	limit = normalizeLimit(limit)

	type hit struct {
		rec  *domain.FoodRecord
		rank int
	}
	hits := make([]hit, 0, 16)
	for _, e := range c.entries {
		rank := partialRank(q, e)
		if rank > 0 {
			hits = append(hits, hit{rec: e.record, rank: rank})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].rank > hits[j].rank
	})

	out := make([]*domain.FoodRecord, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.rec)
	}
	return out
}

func partialRank(q string, e entry) int {
	switch {
	case e.name == q:
		return 4
	case strings.HasPrefix(e.name, q):
		return 3
	case strings.Contains(e.name, q):
		return 2
	}
	for _, alias := range e.aliases {
		if strings.Contains(alias, q) {
			return 1
		}
	}
	return 0
}

// Category returns records whose category contains the query.
func (c *Corpus) Category(category string, limit int) []*domain.FoodRecord {
	q := NormalizeSearch(category)
	if q == "" || c.Len() == 0 {
		return []*domain.FoodRecord{}
	}
	limit = normalizeLimit(limit)

	exact := make([]*domain.FoodRecord, 0, 16)
	partial := make([]*domain.FoodRecord, 0, 16)
	for _, e := range c.entries {
		switch {
		case e.category == q:
			exact = append(exact, e.record)
		case strings.Contains(e.category, q):
			partial = append(partial, e.record)
		}
	}
	out := append(exact, partial...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Fuzzy scores every record by the best similarity over its name and aliases
// and returns the positive-scoring candidates, best first. Among equal scores
// an exact name or alias hit ranks ahead of a containing one.
func (c *Corpus) Fuzzy(query string, limit int, similarity SimilarityFunc) []domain.FoodCandidate {
	q := NormalizeSearch(query)
	if q == "" || c.Len() == 0 {
		return []domain.FoodCandidate{}
	}
	if similarity == nil {
		similarity = ContainmentSimilarity
	}
	limit = normalizeLimit(limit)

	type scored struct {
		candidate domain.FoodCandidate
		exact     bool
	}
	hits := make([]scored, 0, 16)
	for _, e := range c.entries {
		score := bestSimilarity(q, e, similarity)
		if score <= 0 {
			continue
		}
		hits = append(hits, scored{
			candidate: domain.FoodCandidate{Record: e.record, Similarity: score},
			exact:     isExact(q, e),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.candidate.Similarity != b.candidate.Similarity {
			return a.candidate.Similarity > b.candidate.Similarity
		}
		if a.exact != b.exact {
			return a.exact
		}
		return a.candidate.Record.ID < b.candidate.Record.ID
	})

	out := make([]domain.FoodCandidate, 0, min(limit, len(hits)))
	for _, h := range hits {
		out = append(out, h.candidate)
	}
	return trimCandidates(out, limit)
}

func isExact(q string, e entry) bool {
	if e.name == q {
		return true
	}
	for _, alias := range e.aliases {
		if alias == q {
			return true
		}
	}
	return false
}

func bestSimilarity(q string, e entry, similarity SimilarityFunc) float64 {
	best := clamp01(similarity(q, e.name))
	for _, alias := range e.aliases {
		if best >= 1 {
			break
		}
		if s := clamp01(similarity(q, alias)); s > best {
			best = s
		}
	}
	return best
}

func trimCandidates(candidates []domain.FoodCandidate, limit int) []domain.FoodCandidate {
	if len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
