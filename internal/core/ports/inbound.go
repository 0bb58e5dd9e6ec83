package ports

import (
	"context"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

// MatchOptions override matching defaults per call. Zero values keep defaults.
type MatchOptions struct {
	Limit        int
	MinThreshold *float64
}

// FoodMatcher resolves raw food names against the reference store. Matching
// never fails: problems surface as a nil result.
type FoodMatcher interface {
	MatchFood(ctx context.Context, name string, opts MatchOptions) *domain.MatchResult
	MatchFoods(ctx context.Context, names []string, opts MatchOptions) map[string]*domain.MatchResult
	MatchNameQuantityPairs(ctx context.Context, pairs []domain.NameQuantityPair) domain.PairPartition
}

// NutritionAnalyzer is the inbound contract for meal aggregation.
type NutritionAnalyzer interface {
	ProcessParsedFoods(ctx context.Context, items []domain.ParsedFoodItem) (*domain.NutritionAnalysisResult, error)
}

// ReportService runs and reads asynchronous, persisted analyses.
type ReportService interface {
	Submit(ctx context.Context, items []domain.ParsedFoodItem) (*domain.StoredReport, error)
	ProcessJob(ctx context.Context, job domain.AnalysisJob) error
	Get(ctx context.Context, id string) (*domain.StoredReport, error)
}

// FoodCatalog is the read side of the reference store exposed to outer
// surfaces, plus the operator refresh hook.
type FoodCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.FoodRecord, error)
	SearchByPartialName(ctx context.Context, query string, limit int) ([]*domain.FoodRecord, error)
	SearchByFuzzyMatch(ctx context.Context, query string, limit int) ([]domain.FoodCandidate, error)
	SearchByCategory(ctx context.Context, category string, limit int) ([]*domain.FoodRecord, error)
	Stats(ctx context.Context) (domain.ReferenceStats, error)
	Refresh(ctx context.Context) error
}
