package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
)

const DefaultLowConfidenceThreshold = 0.7

type AggregationConfig struct {
	LowConfidenceThreshold float64
	Workers                int
}

func (c AggregationConfig) normalize() AggregationConfig {
	if c.LowConfidenceThreshold <= 0 || math.IsNaN(c.LowConfidenceThreshold) {
		c.LowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// NutritionAggregationService turns parsed (name, quantity) items into a
// nutrition report.
type NutritionAggregationService struct {
	repo     ports.FoodRepository
	matcher  ports.FoodMatcher
	parser   ports.QuantityParser
	balance  ports.BalanceScorer
	cfg      AggregationConfig
	recorder ports.AnalysisRecorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewNutritionAggregationService(
	repo ports.FoodRepository,
	matcher ports.FoodMatcher,
	parser ports.QuantityParser,
	balance ports.BalanceScorer,
	cfg AggregationConfig,
	recorder ports.AnalysisRecorder,
	logger *slog.Logger,
) *NutritionAggregationService {
	if balance == nil {
		balance = NewEvennessBalanceScorer(DefaultMealReference)
	}
	if recorder == nil {
		recorder = ports.NoopRecorder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NutritionAggregationService{
		repo:     repo,
		matcher:  matcher,
		parser:   parser,
		balance:  balance,
		cfg:      cfg.normalize(),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

type outcomeKind int

const (
	outcomeUnmatched outcomeKind = iota
	outcomeFailed
	outcomeResolved
)

type itemOutcome struct {
	kind          outcomeKind
	errMessage    string
	lowConfidence bool
	record        *domain.FoodRecord
	meal          domain.MealFoodItem
	food          domain.ResolvedFood
}

// ProcessParsedFoods resolves every item independently. Per-item problems are
// reported in the result metadata; only an unavailable reference dataset or a
// cancelled context fails the call.
func (s *NutritionAggregationService) ProcessParsedFoods(ctx context.Context, items []domain.ParsedFoodItem) (*domain.NutritionAnalysisResult, error) {
	start := s.now()
	if err := s.repo.EnsureLoaded(ctx); err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.FoodName)
	}
	matches := s.matcher.MatchFoods(ctx, names, ports.MatchOptions{})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]itemOutcome, len(items))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = s.resolveItem(item, matches[item.FoodName])
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := domain.AnalysisMeta{
		UnmatchedFoods:       make([]string, 0),
		LowConfidenceMatches: make([]string, 0),
		Errors:               make([]string, 0),
		TotalInputItems:      len(items),
	}
	foods := make([]domain.ResolvedFood, 0, len(items))
	meals := make([]domain.MealFoodItem, 0, len(items))
	records := make(map[string]*domain.FoodRecord, len(items))

	for i, out := range outcomes {
		switch out.kind {
		case outcomeUnmatched:
			meta.UnmatchedFoods = append(meta.UnmatchedFoods, items[i].FoodName)
		case outcomeFailed:
			meta.Errors = append(meta.Errors, out.errMessage)
			s.logger.Warn("food_item_failed", "food", items[i].FoodName, "error", out.errMessage)
		case outcomeResolved:
			if out.lowConfidence {
				meta.LowConfidenceMatches = append(meta.LowConfidenceMatches, items[i].FoodName)
			}
			foods = append(foods, out.food)
			meals = append(meals, out.meal)
			records[out.record.ID] = out.record
		}
	}
	meta.TotalItemsFound = len(meals)

	report := s.calculateNutrition(meals, records, len(items))
	elapsed := s.now().Sub(start)
	meta.CalculationTime = elapsed.Milliseconds()
	s.recorder.RecordAggregation(len(items), len(meals), report.Reliability.Completeness, elapsed)

	return &domain.NutritionAnalysisResult{
		Foods:     foods,
		Nutrition: summarize(report),
		Meta:      meta,
	}, nil
}

func (s *NutritionAggregationService) resolveItem(item domain.ParsedFoodItem, match *domain.MatchResult) itemOutcome {
	if match == nil || match.Record == nil {
		return itemOutcome{kind: outcomeUnmatched}
	}
	profile := match.Record.Profile()

	parsed, err := s.parser.ParseQuantity(item.QuantityText, profile)
	if err != nil {
		return itemOutcome{kind: outcomeFailed, errMessage: itemError(item.FoodName, err)}
	}
	grams, err := s.parser.ConvertToGrams(parsed.Quantity, profile)
	if err != nil {
		return itemOutcome{kind: outcomeFailed, errMessage: itemError(item.FoodName, err)}
	}

	confidence := CombineConfidence(match.Similarity, item.UpstreamConfidence(), parsed.Confidence, grams.Confidence)
	return itemOutcome{
		kind:          outcomeResolved,
		lowConfidence: match.Similarity < s.cfg.LowConfidenceThreshold,
		record:        match.Record,
		meal: domain.MealFoodItem{
			FoodID:        match.Record.ID,
			OriginalInput: item.FoodName,
			Grams:         math.Max(0, grams.Grams),
			Confidence:    confidence,
		},
		food: domain.ResolvedFood{
			Name:       match.Record.Name,
			Quantity:   formatQuantity(parsed.Quantity, grams.Grams),
			Confidence: confidence,
		},
	}
}

func itemError(name string, err error) string {
	return fmt.Sprintf("%sの処理中にエラー: %v", name, err)
}

// CombineConfidence returns the minimum of the inputs, each clamped to [0,1],
// so the result never exceeds any input and is 0 when any input is 0.
func CombineConfidence(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	out := 1.0
	for _, s := range scores {
		out = math.Min(out, clampUnit(s))
	}
	return out
}

// calculateNutrition scales each record's nutrients by grams over its basis,
// sums them and derives the reliability block.
func (s *NutritionAggregationService) calculateNutrition(
	items []domain.MealFoodItem,
	records map[string]*domain.FoodRecord,
	inputCount int,
) domain.NutritionReport {
	report := domain.NutritionReport{
		Nutrients: make([]domain.NutrientTotal, 0, len(domain.NutrientCatalog)),
		Breakdown: make([]domain.FoodContribution, 0, len(items)),
	}

	confidenceSum := 0.0
	for _, item := range items {
		rec := records[item.FoodID]
		if rec == nil {
			continue
		}
		basis := rec.BasisGrams
		if basis <= 0 {
			basis = domain.DefaultBasisGrams
		}
		contribution := rec.Nutrients.Scale(item.Grams / basis)
		report.Totals = report.Totals.Add(contribution)
		report.Breakdown = append(report.Breakdown, domain.FoodContribution{
			Item:      item,
			FoodName:  rec.Name,
			Nutrients: roundSet(contribution),
		})
		confidenceSum += item.Confidence
	}

	if len(report.Breakdown) == 0 {
		return report
	}

	report.Totals = roundSet(report.Totals)
	for _, def := range domain.NutrientCatalog {
		v, _ := report.Totals.Get(def.Key)
		report.Nutrients = append(report.Nutrients, domain.NutrientTotal{Name: def.Key, Value: v, Unit: def.Unit})
	}
	report.Reliability = domain.Reliability{
		OverallConfidence: round2(confidenceSum / float64(len(report.Breakdown))),
		BalanceScore:      round2(s.balance.Score(report.Totals)),
		Completeness:      round2(float64(len(report.Breakdown)) / float64(inputCount)),
	}
	return report
}

func summarize(r domain.NutritionReport) domain.NutritionSummary {
	return domain.NutritionSummary{
		Calories:        r.Totals.Calories,
		Protein:         r.Totals.Protein,
		Iron:            r.Totals.Iron,
		FolicAcid:       r.Totals.FolicAcid,
		Calcium:         r.Totals.Calcium,
		VitaminD:        r.Totals.VitaminD,
		ConfidenceScore: r.Reliability.OverallConfidence,
		BalanceScore:    r.Reliability.BalanceScore,
		Completeness:    r.Reliability.Completeness,
		Nutrients:       r.Nutrients,
		Breakdown:       r.Breakdown,
	}
}

// formatQuantity renders "150g" for gram quantities and "2 piece (300g)"
// otherwise.
func formatQuantity(q domain.Quantity, grams float64) string {
	value := formatNumber(q.Value)
	if q.Unit == "g" {
		return value + "g"
	}
	return fmt.Sprintf("%s %s (%sg)", value, q.Unit, formatNumber(grams))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func roundSet(n domain.NutrientSet) domain.NutrientSet {
	return domain.NutrientSet{
		Calories:  round2(n.Calories),
		Protein:   round2(n.Protein),
		Iron:      round2(n.Iron),
		FolicAcid: round2(n.FolicAcid),
		Calcium:   round2(n.Calcium),
		VitaminD:  round2(n.VitaminD),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
