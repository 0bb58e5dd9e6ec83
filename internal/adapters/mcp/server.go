package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/core/usecase"
)

const (
	ServerName    = "meal-nutrition"
	ServerVersion = "1.0.0"

	defaultSearchLimit = 10
)

// Server exposes meal analysis and food lookup as MCP tools.
type Server struct {
	analyzer ports.NutritionAnalyzer
	catalog  ports.FoodCatalog
	logger   *slog.Logger
}

func NewServer(analyzer ports.NutritionAnalyzer, catalog ports.FoodCatalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		analyzer: analyzer,
		catalog:  catalog,
		logger:   logger,
	}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("analyze_meal",
		mcp.WithDescription("Estimate the nutrition of a meal from recognized food names and free-text quantities such as \"100g\", \"2個\" or \"大さじ1\"."),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("Foods in the meal: objects with foodName, optional quantityText and optional recognition confidence in [0,1]."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"foodName":     map[string]any{"type": "string"},
					"quantityText": map[string]any{"type": "string"},
					"confidence":   map[string]any{"type": "number"},
				},
				"required": []string{"foodName"},
			}),
		),
	), s.analyzeMeal)

	srv.AddTool(mcp.NewTool("search_foods",
		mcp.WithDescription("Search the reference food dataset by partial name, fuzzy name or category."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Food name or category to look for.")),
		mcp.WithString("mode", mcp.Description("partial (default), fuzzy or category."), mcp.Enum("partial", "fuzzy", "category")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results.")),
	), s.searchFoods)

	srv.AddTool(mcp.NewTool("confidence_display",
		mcp.WithDescription("Map a confidence score to its tier and display metadata."),
		mcp.WithNumber("score", mcp.Required(), mcp.Description("Confidence or similarity score.")),
	), s.confidenceDisplay)

	return srv
}

// ServeStdio blocks serving the protocol over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

type analyzeMealParams struct {
	Items []domain.ParsedFoodItem `json:"items"`
}

func (s *Server) analyzeMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params analyzeMealParams
	if err := bindArguments(req, &params); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(params.Items) > 0 {
		if err := usecase.ValidateItems(params.Items); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := s.analyzer.ProcessParsedFoods(ctx, params.Items)
	if err != nil {
		s.logger.Error("mcp_tool_failed", "tool", "analyze_meal", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

type foodHit struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Similarity *float64 `json:"similarity,omitempty"`
}

func (s *Server) searchFoods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := strings.ToLower(strings.TrimSpace(req.GetString("mode", "partial")))
	limit := req.GetInt("limit", defaultSearchLimit)

	hits := make([]foodHit, 0)
	switch mode {
	case "partial", "category":
		search := s.catalog.SearchByPartialName
		if mode == "category" {
			search = s.catalog.SearchByCategory
		}
		records, err := search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, rec := range records {
			hits = append(hits, foodHit{ID: rec.ID, Name: rec.Name, Category: rec.Category})
		}
	case "fuzzy":
		candidates, err := s.catalog.SearchByFuzzyMatch(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, c := range candidates {
			similarity := c.Similarity
			hits = append(hits, foodHit{ID: c.Record.ID, Name: c.Record.Name, Category: c.Record.Category, Similarity: &similarity})
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q, expected partial, fuzzy or category", mode)), nil
	}
	return jsonResult(hits)
}

func (s *Server) confidenceDisplay(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["score"]; !ok {
		return mcp.NewToolResultError("required argument \"score\" not found"), nil
	}
	score := req.GetFloat("score", 0)
	return jsonResult(map[string]any{
		"tier":    domain.TierFor(score),
		"display": domain.DisplayFor(score),
	})
}

// bindArguments round-trips the loosely typed argument map into params.
func bindArguments(req mcp.CallToolRequest, target any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
