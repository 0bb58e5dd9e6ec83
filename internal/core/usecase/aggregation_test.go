package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

func newAggregator(repo *foodRepoFake, parser gramParserFake, rec *recorderFake) *NutritionAggregationService {
	matcher := NewFoodMatchingService(repo, MatchConfig{}, rec, nil)
	return NewNutritionAggregationService(repo, matcher, parser, nil, AggregationConfig{}, rec, nil)
}

func TestProcessParsedFoodsAppleBananaScenario(t *testing.T) {
	repo := newFoodRepoFake(appleRecord, bananaRecord)
	svc := newAggregator(repo, gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{
		{FoodName: "apple", QuantityText: "100g"},
		{FoodName: "banana", QuantityText: "50g"},
	})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if res.Nutrition.Calories != 145 {
		t.Fatalf("expected 145 kcal, got %v", res.Nutrition.Calories)
	}
	if res.Meta.TotalItemsFound != 2 || res.Meta.TotalInputItems != 2 {
		t.Fatalf("unexpected counts: %+v", res.Meta)
	}
	if len(res.Foods) != 2 || res.Foods[0].Name != "apple" || res.Foods[0].Quantity != "100g" || res.Foods[1].Name != "banana" {
		t.Fatalf("unexpected foods: %+v", res.Foods)
	}
	if res.Nutrition.Completeness != 1 || res.Nutrition.ConfidenceScore != 1 {
		t.Fatalf("unexpected reliability: %+v", res.Nutrition)
	}
	if len(res.Nutrition.Nutrients) != len(domain.NutrientCatalog) || res.Nutrition.Nutrients[0].Name != domain.NutrientCalories || res.Nutrition.Nutrients[0].Unit != "kcal" {
		t.Fatalf("unexpected nutrient list: %+v", res.Nutrition.Nutrients)
	}
	if len(res.Nutrition.Breakdown) != 2 || res.Nutrition.Breakdown[1].Nutrients.Calories != 45 {
		t.Fatalf("unexpected breakdown: %+v", res.Nutrition.Breakdown)
	}
}

func TestProcessParsedFoodsEmptyInput(t *testing.T) {
	svc := newAggregator(newFoodRepoFake(appleRecord), gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), nil)
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if res.Meta.TotalInputItems != 0 || res.Meta.TotalItemsFound != 0 {
		t.Fatalf("unexpected counts: %+v", res.Meta)
	}
	if res.Foods == nil || len(res.Foods) != 0 {
		t.Fatalf("expected empty non-nil foods, got %#v", res.Foods)
	}
	if res.Meta.UnmatchedFoods == nil || res.Meta.Errors == nil || res.Meta.LowConfidenceMatches == nil {
		t.Fatalf("expected non-nil metadata lists: %+v", res.Meta)
	}
	if len(res.Nutrition.Nutrients) != 0 || res.Nutrition.Calories != 0 || res.Nutrition.Completeness != 0 {
		t.Fatalf("expected empty totals: %+v", res.Nutrition)
	}
}

func TestProcessParsedFoodsUnmatchedItem(t *testing.T) {
	svc := newAggregator(newFoodRepoFake(appleRecord), gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{
		{FoodName: "apple", QuantityText: "200g"},
		{FoodName: "dragonfruit", QuantityText: "1"},
	})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if len(res.Meta.UnmatchedFoods) != 1 || res.Meta.UnmatchedFoods[0] != "dragonfruit" {
		t.Fatalf("unexpected unmatched list: %v", res.Meta.UnmatchedFoods)
	}
	if res.Meta.TotalItemsFound != 1 || res.Meta.TotalInputItems != 2 {
		t.Fatalf("unexpected counts: %+v", res.Meta)
	}
	if res.Nutrition.Calories != 200 || res.Nutrition.Completeness != 0.5 {
		t.Fatalf("expected totals from apple only: %+v", res.Nutrition)
	}
}

func TestProcessParsedFoodsQuantityErrorsAreCaptured(t *testing.T) {
	svc := newAggregator(newFoodRepoFake(appleRecord, bananaRecord), gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{
		{FoodName: "apple", QuantityText: "bad"},
		{FoodName: "banana", QuantityText: "unconvertible"},
		{FoodName: "apple", QuantityText: "100g"},
	})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if len(res.Meta.Errors) != 2 {
		t.Fatalf("expected two item errors, got %v", res.Meta.Errors)
	}
	if !strings.Contains(res.Meta.Errors[0], "apple") || !strings.Contains(res.Meta.Errors[1], "banana") {
		t.Fatalf("errors should name the food: %v", res.Meta.Errors)
	}
	if !strings.HasPrefix(res.Meta.Errors[0], "appleの処理中にエラー: ") {
		t.Fatalf("unexpected error format %q", res.Meta.Errors[0])
	}
	if len(res.Foods) != 1 || res.Nutrition.Calories != 100 {
		t.Fatalf("failed items must not contribute: foods=%+v calories=%v", res.Foods, res.Nutrition.Calories)
	}
	for _, f := range res.Foods {
		if f.Name == "banana" {
			t.Fatalf("errored item must not appear in foods")
		}
	}
}

func TestProcessParsedFoodsCombinedConfidenceAndLowConfidence(t *testing.T) {
	repo := newFoodRepoFake(appleRecord, bananaRecord)
	repo.script("aple", domain.FoodCandidate{Record: appleRecord, Similarity: 0.65})
	svc := newAggregator(repo, gramParserFake{confidence: 0.9}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{
		{FoodName: "aple", QuantityText: "100g"},
		{FoodName: "banana", QuantityText: "100g", Confidence: ptr(0.4)},
		{FoodName: "apple", QuantityText: "2"},
	})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	want := []float64{0.65, 0.4, 0.6}
	for i, w := range want {
		if math.Abs(res.Foods[i].Confidence-w) > 1e-9 {
			t.Fatalf("item %d confidence = %v, want %v", i, res.Foods[i].Confidence, w)
		}
	}
	if len(res.Meta.LowConfidenceMatches) != 1 || res.Meta.LowConfidenceMatches[0] != "aple" {
		t.Fatalf("unexpected low-confidence list: %v", res.Meta.LowConfidenceMatches)
	}
	if math.Abs(res.Nutrition.ConfidenceScore-0.55) > 1e-9 {
		t.Fatalf("expected mean confidence 0.55, got %v", res.Nutrition.ConfidenceScore)
	}
	if res.Foods[2].Quantity != "2 piece (200g)" {
		t.Fatalf("unexpected quantity display %q", res.Foods[2].Quantity)
	}
}

func TestProcessParsedFoodsPropagatesDatasetFailure(t *testing.T) {
	repo := newFoodRepoFake(appleRecord)
	repo.loadErr = domain.WrapError(domain.ErrDatasetUnavailable, "load", errors.New("no such file"))
	svc := newAggregator(repo, gramParserFake{}, newRecorderFake())

	_, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{{FoodName: "apple", QuantityText: "1"}})
	if !domain.IsKind(err, domain.ErrDatasetUnavailable) {
		t.Fatalf("expected ErrDatasetUnavailable, got %v", err)
	}
}

func TestProcessParsedFoodsPreservesInputOrder(t *testing.T) {
	records := make([]*domain.FoodRecord, 0, 30)
	items := make([]domain.ParsedFoodItem, 0, 30)
	for i := 0; i < 30; i++ {
		name := fmt.Sprintf("food-%02d", i)
		records = append(records, &domain.FoodRecord{ID: name, Name: name, BasisGrams: 100, Nutrients: domain.NutrientSet{Calories: 10}})
		items = append(items, domain.ParsedFoodItem{FoodName: name, QuantityText: "100g"})
	}
	svc := newAggregator(newFoodRepoFake(records...), gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), items)
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	for i, f := range res.Foods {
		if f.Name != items[i].FoodName {
			t.Fatalf("position %d: got %s, want %s", i, f.Name, items[i].FoodName)
		}
	}
	if res.Nutrition.Calories != 300 {
		t.Fatalf("expected 300 kcal, got %v", res.Nutrition.Calories)
	}
}

func TestProcessParsedFoodsHonoursRecordBasis(t *testing.T) {
	rice := &domain.FoodRecord{ID: "f-rice", Name: "rice", BasisGrams: 150, Nutrients: domain.NutrientSet{Calories: 234}}
	svc := newAggregator(newFoodRepoFake(rice), gramParserFake{}, newRecorderFake())

	res, err := svc.ProcessParsedFoods(context.Background(), []domain.ParsedFoodItem{{FoodName: "rice", QuantityText: "75g"}})
	if err != nil {
		t.Fatalf("ProcessParsedFoods() error = %v", err)
	}
	if res.Nutrition.Calories != 117 {
		t.Fatalf("expected 117 kcal for half a basis, got %v", res.Nutrition.Calories)
	}
}

func TestCombineConfidence(t *testing.T) {
	if got := CombineConfidence(0.9, 0.8, 1, 0.95); got != 0.8 {
		t.Fatalf("expected min 0.8, got %v", got)
	}
	if got := CombineConfidence(0.9, 0, 1, 1); got != 0 {
		t.Fatalf("expected 0 when any input is 0, got %v", got)
	}
	if got := CombineConfidence(1.5, -1, math.NaN()); got != 0 {
		t.Fatalf("expected clamped inputs, got %v", got)
	}
	if got := CombineConfidence(); got != 0 {
		t.Fatalf("expected 0 for no inputs, got %v", got)
	}
}

func TestEvennessBalanceScorer(t *testing.T) {
	s := NewEvennessBalanceScorer(DefaultMealReference)

	if got := s.Score(DefaultMealReference); math.Abs(got-100) > 1e-9 {
		t.Fatalf("expected 100 for proportional meal, got %v", got)
	}
	if got := s.Score(domain.NutrientSet{Calories: 500}); got != 0 {
		t.Fatalf("expected 0 for single-nutrient meal, got %v", got)
	}
	if got := s.Score(domain.NutrientSet{}); got != 0 {
		t.Fatalf("expected 0 for empty meal, got %v", got)
	}
	mixed := s.Score(domain.NutrientSet{Calories: 700, Protein: 20, Iron: 1})
	if mixed <= 0 || mixed >= 100 {
		t.Fatalf("expected partial score, got %v", mixed)
	}
}
