package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

type analyzerFake struct {
	items []domain.ParsedFoodItem
	err   error
}

func (f *analyzerFake) ProcessParsedFoods(_ context.Context, items []domain.ParsedFoodItem) (*domain.NutritionAnalysisResult, error) {
	f.items = items
	if f.err != nil {
		return nil, f.err
	}
	return &domain.NutritionAnalysisResult{
		Nutrition: domain.NutritionSummary{Calories: 145},
		Meta:      domain.AnalysisMeta{TotalInputItems: len(items), TotalItemsFound: len(items)},
	}, nil
}

type catalogFake struct {
	lastLimit int
	records   []*domain.FoodRecord
}

func (f *catalogFake) GetByID(context.Context, string) (*domain.FoodRecord, error) {
	return nil, domain.ErrFoodNotFound
}

func (f *catalogFake) SearchByPartialName(_ context.Context, _ string, limit int) ([]*domain.FoodRecord, error) {
	f.lastLimit = limit
	return f.records, nil
}

func (f *catalogFake) SearchByFuzzyMatch(_ context.Context, _ string, limit int) ([]domain.FoodCandidate, error) {
	f.lastLimit = limit
	out := make([]domain.FoodCandidate, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, domain.FoodCandidate{Record: r, Similarity: 1})
	}
	return out, nil
}

func (f *catalogFake) SearchByCategory(_ context.Context, _ string, limit int) ([]*domain.FoodRecord, error) {
	f.lastLimit = limit
	return f.records[:1], nil
}

func (f *catalogFake) Stats(context.Context) (domain.ReferenceStats, error) {
	return domain.ReferenceStats{}, nil
}

func (f *catalogFake) Refresh(context.Context) error { return nil }

func newTestServer(analyzer *analyzerFake) (*Server, *catalogFake) {
	catalog := &catalogFake{records: []*domain.FoodRecord{
		{ID: "f-apple", Name: "Apple", Category: "Fruit"},
		{ID: "f-apple-pie", Name: "Apple Pie", Category: "Sweets"},
	}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewServer(analyzer, catalog, logger), catalog
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestMCPServerBuilds(t *testing.T) {
	srv, _ := newTestServer(&analyzerFake{})
	if srv.MCPServer() == nil {
		t.Fatalf("expected mcp server")
	}
}

func TestAnalyzeMealBindsItems(t *testing.T) {
	analyzer := &analyzerFake{}
	srv, _ := newTestServer(analyzer)

	res, err := srv.analyzeMeal(context.Background(), callRequest("analyze_meal", map[string]any{
		"items": []any{
			map[string]any{"foodName": "apple", "quantityText": "100g"},
			map[string]any{"foodName": "banana", "quantityText": "50g", "confidence": 0.8},
		},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(analyzer.items) != 2 || analyzer.items[1].UpstreamConfidence() != 0.8 || analyzer.items[0].QuantityText != "100g" {
		t.Fatalf("items not bound: %+v", analyzer.items)
	}

	var result domain.NutritionAnalysisResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Nutrition.Calories != 145 {
		t.Fatalf("expected 145 kcal, got %v", result.Nutrition.Calories)
	}
}

func TestAnalyzeMealReportsErrorsAsToolErrors(t *testing.T) {
	srv, _ := newTestServer(&analyzerFake{err: domain.WrapError(domain.ErrDatasetUnavailable, "load", errors.New("missing file"))})

	res, err := srv.analyzeMeal(context.Background(), callRequest("analyze_meal", map[string]any{
		"items": []any{map[string]any{"foodName": "apple"}},
	}))
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}

	res, _ = srv.analyzeMeal(context.Background(), callRequest("analyze_meal", map[string]any{
		"items": []any{map[string]any{"foodName": " "}},
	}))
	if !res.IsError {
		t.Fatalf("expected validation error for blank food name")
	}

	res, _ = srv.analyzeMeal(context.Background(), callRequest("analyze_meal", map[string]any{
		"items": "apple",
	}))
	if !res.IsError {
		t.Fatalf("expected binding error for non-array items")
	}
}

func TestSearchFoodsModes(t *testing.T) {
	srv, catalog := newTestServer(&analyzerFake{})

	res, _ := srv.searchFoods(context.Background(), callRequest("search_foods", map[string]any{"query": "apple"}))
	var hits []foodHit
	if err := json.Unmarshal([]byte(resultText(t, res)), &hits); err != nil {
		t.Fatalf("decode hits: %v", err)
	}
	if len(hits) != 2 || hits[0].Similarity != nil || catalog.lastLimit != defaultSearchLimit {
		t.Fatalf("unexpected partial hits %+v (limit %d)", hits, catalog.lastLimit)
	}

	res, _ = srv.searchFoods(context.Background(), callRequest("search_foods", map[string]any{"query": "apple", "mode": "fuzzy", "limit": float64(3)}))
	hits = nil
	if err := json.Unmarshal([]byte(resultText(t, res)), &hits); err != nil {
		t.Fatalf("decode fuzzy hits: %v", err)
	}
	if len(hits) != 2 || hits[0].Similarity == nil || *hits[0].Similarity != 1 || catalog.lastLimit != 3 {
		t.Fatalf("unexpected fuzzy hits %+v (limit %d)", hits, catalog.lastLimit)
	}

	res, _ = srv.searchFoods(context.Background(), callRequest("search_foods", map[string]any{"query": "fruit", "mode": "category"}))
	hits = nil
	if err := json.Unmarshal([]byte(resultText(t, res)), &hits); err != nil {
		t.Fatalf("decode category hits: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "f-apple" {
		t.Fatalf("unexpected category hits %+v", hits)
	}

	if res, _ := srv.searchFoods(context.Background(), callRequest("search_foods", map[string]any{"query": "apple", "mode": "vector"})); !res.IsError {
		t.Fatalf("expected error for unknown mode")
	}
	if res, _ := srv.searchFoods(context.Background(), callRequest("search_foods", map[string]any{})); !res.IsError {
		t.Fatalf("expected error for missing query")
	}
}

func TestConfidenceDisplayTool(t *testing.T) {
	srv, _ := newTestServer(&analyzerFake{})

	res, _ := srv.confidenceDisplay(context.Background(), callRequest("confidence_display", map[string]any{"score": 0.45}))
	var body struct {
		Tier    domain.ConfidenceTier `json:"tier"`
		Display domain.TierDisplay    `json:"display"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("decode display: %v", err)
	}
	if body.Tier != domain.TierLow || body.Display.Level != "low" {
		t.Fatalf("unexpected display %+v", body)
	}

	if res, _ := srv.confidenceDisplay(context.Background(), callRequest("confidence_display", map[string]any{})); !res.IsError {
		t.Fatalf("expected error for missing score")
	}
}
