package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
)

const (
	searchModePartial  = "partial"
	searchModeFuzzy    = "fuzzy"
	searchModeCategory = "category"
)

type searchHit struct {
	Record     *domain.FoodRecord    `json:"record"`
	Similarity *float64              `json:"similarity,omitempty"`
	Tier       domain.ConfidenceTier `json:"tier,omitempty"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Mode    string      `json:"mode"`
	Results []searchHit `json:"results"`
}

func (rt *Router) searchFoods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	mode := strings.ToLower(strings.TrimSpace(q.Get("mode")))
	if mode == "" {
		mode = searchModePartial
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		rt.writeError(w, r, "search_foods", err)
		return
	}

	hits := make([]searchHit, 0)
	switch mode {
	case searchModePartial, searchModeCategory:
		search := rt.catalog.SearchByPartialName
		if mode == searchModeCategory {
			search = rt.catalog.SearchByCategory
		}
		records, err := search(r.Context(), query, limit)
		if err != nil {
			rt.writeError(w, r, "search_foods", err)
			return
		}
		for _, rec := range records {
			hits = append(hits, searchHit{Record: rec})
		}
	case searchModeFuzzy:
		candidates, err := rt.catalog.SearchByFuzzyMatch(r.Context(), query, limit)
		if err != nil {
			rt.writeError(w, r, "search_foods", err)
			return
		}
		for _, c := range candidates {
			similarity := c.Similarity
			hits = append(hits, searchHit{Record: c.Record, Similarity: &similarity, Tier: domain.TierFor(similarity)})
		}
	default:
		rt.writeError(w, r, "search_foods", domain.WrapError(domain.ErrInvalidInput, "search_foods",
			fmt.Errorf("unknown mode %q, expected partial, fuzzy or category", mode)))
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: query, Mode: mode, Results: hits})
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", fmt.Errorf("limit %q is not an integer", raw))
	}
	return n, nil
}

func (rt *Router) getFood(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rt.writeError(w, r, "get_food", err)
		return
	}
	record, err := rt.catalog.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get_food", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type matchRequest struct {
	Names        []string                  `json:"names"`
	Pairs        []domain.NameQuantityPair `json:"pairs"`
	Limit        int                       `json:"limit"`
	MinThreshold *float64                  `json:"minThreshold"`
}

// matchFoods resolves either a name list (name -> result or null) or
// name/quantity pairs (matched / notFound partition).
func (rt *Router) matchFoods(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rt.writeError(w, r, "match_foods", err)
		return
	}

	switch {
	case len(req.Pairs) > 0:
		writeJSON(w, http.StatusOK, rt.matcher.MatchNameQuantityPairs(r.Context(), req.Pairs))
	case len(req.Names) > 0:
		if req.MinThreshold != nil && (*req.MinThreshold < 0 || *req.MinThreshold > 1) {
			rt.writeError(w, r, "match_foods", domain.WrapError(domain.ErrInvalidInput, "match_foods",
				errors.New("minThreshold must be within [0,1]")))
			return
		}
		matches := rt.matcher.MatchFoods(r.Context(), req.Names, ports.MatchOptions{
			Limit:        req.Limit,
			MinThreshold: req.MinThreshold,
		})
		writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
	default:
		rt.writeError(w, r, "match_foods", domain.WrapError(domain.ErrInvalidInput, "match_foods",
			errors.New("names or pairs are required")))
	}
}

type confidenceDisplayResponse struct {
	Tier    domain.ConfidenceTier `json:"tier"`
	Display domain.TierDisplay    `json:"display"`
}

func (rt *Router) confidenceDisplay(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("score"))
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		rt.writeError(w, r, "confidence_display", domain.WrapError(domain.ErrInvalidInput, "confidence_display",
			fmt.Errorf("score %q is not a number", raw)))
		return
	}
	writeJSON(w, http.StatusOK, confidenceDisplayResponse{
		Tier:    domain.TierFor(score),
		Display: domain.DisplayFor(score),
	})
}
