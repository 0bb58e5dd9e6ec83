package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/meal-nutrition/internal/config"
	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

const foodsYAML = `version: "2026.10"
foods:
  f-apple:
    name: Apple
    category: Fruit
    nutrients: {calories: 52, protein: 0.3}
  f-natto:
    name: 納豆
    category: Beans
    aliases: [natto]
    standard_quantity: 1パック(45g)
    nutrients: {calories: 200, protein: 16.5, iron: 3.3, folic_acid: 120, calcium: 90}
`

func TestNewCoreWiresFileSourceEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foods.yaml")
	if err := os.WriteFile(path, []byte(foodsYAML), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	core, err := NewCore(context.Background(), config.Config{
		ReferenceSource:  "file",
		ReferencePath:    path,
		MatchFuzzyScorer: "levenshtein",
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewCore() error = %v", err)
	}

	result, err := core.Analyzer.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{
		{FoodName: "natto", QuantityText: "1パック"},
	})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if result.Meta.TotalItemsFound != 1 {
		t.Fatalf("expected natto to resolve, got meta %+v", result.Meta)
	}
	// 45 g of a 100 g basis record.
	if result.Nutrition.Calories != 90 {
		t.Fatalf("expected 90 kcal, got %v", result.Nutrition.Calories)
	}

	stats, err := core.Store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Version != "2026.10" || stats.Records != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestNewCoreRejectsUnknownSource(t *testing.T) {
	if _, err := NewCore(context.Background(), config.Config{ReferenceSource: "ftp"}, nil, nil); err == nil {
		t.Fatalf("expected error for unknown reference source")
	}
}

func TestResilienceConfigCarriesOverrides(t *testing.T) {
	out := resilienceConfig(config.Config{
		ResilienceRetryMaxAttempts:   5,
		ResilienceBreakerEnabled:     false,
		ResilienceBreakerOpenTimeout: time.Minute,
	})
	if out.RetryMaxAttempts != 5 || out.BreakerEnabled || out.BreakerOpenTimeout != time.Minute {
		t.Fatalf("unexpected resilience config %+v", out)
	}
	if out.BreakerFailureRatio == 0 || out.RetryMultiplier == 0 {
		t.Fatalf("expected defaults preserved for unset knobs: %+v", out)
	}
}
