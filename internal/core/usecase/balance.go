package usecase

import (
	"math"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

// DefaultMealReference is roughly one third of an adult's daily reference
// intake for each tracked nutrient.
var DefaultMealReference = domain.NutrientSet{
	Calories:  700,
	Protein:   20,
	Iron:      3.5,
	FolicAcid: 80,
	Calcium:   220,
	VitaminD:  2.8,
}

// maxCoverage caps a nutrient's coverage ratio so one oversupplied nutrient
// cannot dominate the distribution.
const maxCoverage = 2.0

// EvennessBalanceScorer scores the normalized Shannon evenness of per-nutrient
// coverage ratios against a per-meal reference, scaled to [0,100]. A meal
// covering every nutrient in the same proportion scores 100; a meal supplying
// a single nutrient scores 0.
type EvennessBalanceScorer struct {
	reference domain.NutrientSet
}

func NewEvennessBalanceScorer(reference domain.NutrientSet) *EvennessBalanceScorer {
	return &EvennessBalanceScorer{reference: reference}
}

func (s *EvennessBalanceScorer) Score(totals domain.NutrientSet) float64 {
	ratios := make([]float64, 0, len(domain.NutrientCatalog))
	sum := 0.0
	for _, def := range domain.NutrientCatalog {
		ref, _ := s.reference.Get(def.Key)
		if ref <= 0 {
			continue
		}
		value, _ := totals.Get(def.Key)
		r := math.Min(math.Max(value, 0)/ref, maxCoverage)
		ratios = append(ratios, r)
		sum += r
	}
	if len(ratios) < 2 || sum <= 0 {
		return 0
	}

	entropy := 0.0
	for _, r := range ratios {
		if r <= 0 {
			continue
		}
		p := r / sum
		entropy -= p * math.Log(p)
	}
	score := entropy / math.Log(float64(len(ratios))) * 100
	return math.Min(100, math.Max(0, score))
}
