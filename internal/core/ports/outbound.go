package ports

import (
	"context"
	"time"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

// DatasetPayload is a raw reference dataset fetched from a source.
type DatasetPayload struct {
	Data   []byte
	Format string
	Origin string
}

// DatasetSource fetches the versioned reference dataset artifact.
type DatasetSource interface {
	Fetch(ctx context.Context) (DatasetPayload, error)
	Describe() string
}

// FoodRepository is the read-mostly reference store. Every read lazily
// triggers the one-time load.
type FoodRepository interface {
	EnsureLoaded(ctx context.Context) error
	Refresh(ctx context.Context) error
	Stats(ctx context.Context) (domain.ReferenceStats, error)

	GetByID(ctx context.Context, id string) (*domain.FoodRecord, error)
	GetByExactName(ctx context.Context, name string) (*domain.FoodRecord, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.FoodRecord, error)
	SearchByPartialName(ctx context.Context, query string, limit int) ([]*domain.FoodRecord, error)
	SearchByFuzzyMatch(ctx context.Context, query string, limit int) ([]domain.FoodCandidate, error)
	SearchByCategory(ctx context.Context, category string, limit int) ([]*domain.FoodRecord, error)
}

// QuantityParser turns free-text quantities into grams. Implementations are
// pure: they never consult the reference store.
type QuantityParser interface {
	ParseQuantity(text string, food domain.FoodProfile) (domain.ParsedQuantity, error)
	ConvertToGrams(q domain.Quantity, food domain.FoodProfile) (domain.GramsResult, error)
}

// BalanceScorer rates how evenly nutrient categories are represented, in [0,100].
type BalanceScorer interface {
	Score(totals domain.NutrientSet) float64
}

// ReportRepository persists analysis reports.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.StoredReport) error
	GetByID(ctx context.Context, id string) (*domain.StoredReport, error)
	SaveResult(ctx context.Context, id string, result *domain.NutritionAnalysisResult) error
	MarkFailed(ctx context.Context, id string, errMessage string) error
}

// MessageQueue publishes/consumes asynchronous analysis jobs.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error
}

// AnalysisRecorder receives matching and aggregation observations.
type AnalysisRecorder interface {
	RecordMatch(tier domain.ConfidenceTier, matched bool)
	RecordLowConfidenceMatch()
	RecordAggregation(inputItems, resolvedItems int, completeness float64, duration time.Duration)
}

// ReferenceRecorder receives reference dataset load observations.
type ReferenceRecorder interface {
	RecordReferenceLoad(outcome string, records int, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordMatch(domain.ConfidenceTier, bool)            {}
func (noopRecorder) RecordLowConfidenceMatch()                          {}
func (noopRecorder) RecordAggregation(int, int, float64, time.Duration) {}
func (noopRecorder) RecordReferenceLoad(string, int, time.Duration)     {}

// NoopRecorder discards observations.
var NoopRecorder = noopRecorder{}
