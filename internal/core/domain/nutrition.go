package domain

import "time"

// ParsedFoodItem is one (name, quantity-text) pair produced by upstream
// recognition or manual entry. A nil Confidence means fully trusted input.
type ParsedFoodItem struct {
	FoodName     string   `json:"foodName"`
	QuantityText string   `json:"quantityText,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// UpstreamConfidence returns the recognition confidence, defaulting to 1.
func (i ParsedFoodItem) UpstreamConfidence() float64 {
	if i.Confidence == nil {
		return 1
	}
	return *i.Confidence
}

// MealFoodItem is one resolved, quantity-scaled food ready for aggregation.
type MealFoodItem struct {
	FoodID        string  `json:"foodId"`
	OriginalInput string  `json:"originalInput"`
	Grams         float64 `json:"grams"`
	Confidence    float64 `json:"confidence"`
}

type NameQuantityPair struct {
	Name         string `json:"name"`
	QuantityText string `json:"quantityText,omitempty"`
}

type MatchedPair struct {
	Pair  NameQuantityPair `json:"pair"`
	Match *MatchResult     `json:"match"`
}

// PairPartition splits name/quantity pairs into matched and not-found inputs.
type PairPartition struct {
	Matched  []MatchedPair `json:"matched"`
	NotFound []string      `json:"notFound"`
}

type ResolvedFood struct {
	Name       string  `json:"name"`
	Quantity   string  `json:"quantity"`
	Confidence float64 `json:"confidence"`
}

type NutrientTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// FoodContribution is the per-food breakdown entry of a report.
type FoodContribution struct {
	Item      MealFoodItem `json:"item"`
	FoodName  string       `json:"foodName"`
	Nutrients NutrientSet  `json:"nutrients"`
}

type Reliability struct {
	OverallConfidence float64 `json:"overallConfidence"`
	BalanceScore      float64 `json:"balanceScore"`
	Completeness      float64 `json:"completeness"`
}

// NutritionReport is the output of the internal calculation step.
type NutritionReport struct {
	Totals      NutrientSet        `json:"totals"`
	Nutrients   []NutrientTotal    `json:"nutrients"`
	Breakdown   []FoodContribution `json:"breakdown"`
	Reliability Reliability        `json:"reliability"`
}

// NutritionSummary is the flat nutrient view exposed to collaborators.
type NutritionSummary struct {
	Calories        float64            `json:"calories"`
	Protein         float64            `json:"protein"`
	Iron            float64            `json:"iron"`
	FolicAcid       float64            `json:"folic_acid"`
	Calcium         float64            `json:"calcium"`
	VitaminD        float64            `json:"vitamin_d"`
	ConfidenceScore float64            `json:"confidence_score"`
	BalanceScore    float64            `json:"balance_score"`
	Completeness    float64            `json:"completeness"`
	Nutrients       []NutrientTotal    `json:"nutrients"`
	Breakdown       []FoodContribution `json:"breakdown"`
}

type AnalysisMeta struct {
	UnmatchedFoods       []string `json:"unmatchedFoods"`
	LowConfidenceMatches []string `json:"lowConfidenceMatches"`
	Errors               []string `json:"errors"`
	TotalItemsFound      int      `json:"totalItemsFound"`
	TotalInputItems      int      `json:"totalInputItems"`
	CalculationTime      int64    `json:"calculationTime"`
}

type NutritionAnalysisResult struct {
	Foods     []ResolvedFood   `json:"foods"`
	Nutrition NutritionSummary `json:"nutrition"`
	Meta      AnalysisMeta     `json:"meta"`
}

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// StoredReport is a persisted analysis request and its outcome.
type StoredReport struct {
	ID        string                   `json:"id"`
	Status    ReportStatus             `json:"status"`
	Items     []ParsedFoodItem         `json:"items"`
	Result    *NutritionAnalysisResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// AnalysisJob is the queue payload for asynchronous analysis.
type AnalysisJob struct {
	ReportID    string    `json:"report_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}
