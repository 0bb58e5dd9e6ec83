package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
)

const (
	DefaultCandidateLimit = 1
	DefaultMinSimilarity  = 0.5
	DefaultWorkers        = 4
)

type MatchConfig struct {
	CandidateLimit int
	MinSimilarity  float64
	Workers        int
}

func (c MatchConfig) normalize() MatchConfig {
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = DefaultCandidateLimit
	}
	if c.MinSimilarity <= 0 || math.IsNaN(c.MinSimilarity) {
		c.MinSimilarity = DefaultMinSimilarity
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// FoodMatchingService resolves raw food names to reference records.
type FoodMatchingService struct {
	repo     ports.FoodRepository
	cfg      MatchConfig
	recorder ports.AnalysisRecorder
	logger   *slog.Logger
}

func NewFoodMatchingService(
	repo ports.FoodRepository,
	cfg MatchConfig,
	recorder ports.AnalysisRecorder,
	logger *slog.Logger,
) *FoodMatchingService {
	if recorder == nil {
		recorder = ports.NoopRecorder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FoodMatchingService{
		repo:     repo,
		cfg:      cfg.normalize(),
		recorder: recorder,
		logger:   logger,
	}
}

// MatchFood returns the best reference match for name, or nil. Candidates
// below the threshold but at or above the VERY_LOW floor are still returned
// and reported as low-confidence. Repository failures are logged and yield nil.
func (s *FoodMatchingService) MatchFood(ctx context.Context, name string, opts ports.MatchOptions) *domain.MatchResult {
	query := strings.TrimSpace(name)
	if query == "" {
		s.recorder.RecordMatch(domain.TierNone, false)
		return nil
	}

	limit := s.cfg.CandidateLimit
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	threshold := s.cfg.MinSimilarity
	if opts.MinThreshold != nil && !math.IsNaN(*opts.MinThreshold) {
		threshold = *opts.MinThreshold
	}

	candidates, err := s.repo.SearchByFuzzyMatch(ctx, query, limit)
	if err != nil {
		s.logger.Error("match_failed", "food", name, "error", err)
		s.recorder.RecordMatch(domain.TierNone, false)
		return nil
	}

	best, ok := bestCandidate(candidates)
	if !ok {
		if len(candidates) > 0 {
			s.logger.Warn("match_candidate_invalid", "food", name, "candidates", len(candidates))
		}
		s.recorder.RecordMatch(domain.TierNone, false)
		return nil
	}

	similarity := best.Similarity
	if similarity < domain.VeryLowFloor {
		s.recorder.RecordMatch(domain.TierNone, false)
		return nil
	}

	tier := domain.TierFor(similarity)
	if similarity < threshold {
		s.logger.Warn("low_confidence_match",
			"food", name,
			"matched_id", best.Record.ID,
			"matched_name", best.Record.Name,
			"similarity", similarity,
			"threshold", threshold,
			"tier", string(tier),
		)
		s.recorder.RecordLowConfidenceMatch()
	}
	s.recorder.RecordMatch(tier, true)

	return &domain.MatchResult{
		Input:      name,
		Record:     best.Record,
		Similarity: similarity,
		Tier:       tier,
	}
}

// bestCandidate picks the highest-similarity well-formed candidate. Candidates
// without a record or id, or with a non-finite similarity, are ignored.
func bestCandidate(candidates []domain.FoodCandidate) (domain.FoodCandidate, bool) {
	var best domain.FoodCandidate
	found := false
	for _, c := range candidates {
		if c.Record == nil || strings.TrimSpace(c.Record.ID) == "" {
			continue
		}
		if math.IsNaN(c.Similarity) || math.IsInf(c.Similarity, 0) {
			continue
		}
		c.Similarity = math.Min(1, math.Max(0, c.Similarity))
		if !found || c.Similarity > best.Similarity {
			best = c
			found = true
		}
	}
	return best, found
}

// MatchFoods matches each distinct name once. Every input name has an entry in
// the result; nil means no match.
func (s *FoodMatchingService) MatchFoods(ctx context.Context, names []string, opts ports.MatchOptions) map[string]*domain.MatchResult {
	distinct := distinctNames(names)
	results := make([]*domain.MatchResult, len(distinct))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, name := range distinct {
		g.Go(func() error {
			results[i] = s.MatchFood(ctx, name, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*domain.MatchResult, len(distinct))
	for i, name := range distinct {
		out[name] = results[i]
	}
	return out
}

// MatchNameQuantityPairs splits pairs into matched (with their quantity text)
// and not-found names, preserving input order.
func (s *FoodMatchingService) MatchNameQuantityPairs(ctx context.Context, pairs []domain.NameQuantityPair) domain.PairPartition {
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.Name)
	}
	matches := s.MatchFoods(ctx, names, ports.MatchOptions{})

	out := domain.PairPartition{
		Matched:  make([]domain.MatchedPair, 0, len(pairs)),
		NotFound: make([]string, 0),
	}
	for _, p := range pairs {
		if m := matches[p.Name]; m != nil {
			out.Matched = append(out.Matched, domain.MatchedPair{Pair: p, Match: m})
			continue
		}
		out.NotFound = append(out.NotFound, p.Name)
	}
	return out
}

func distinctNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
