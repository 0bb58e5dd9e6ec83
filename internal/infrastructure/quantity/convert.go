package quantity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

const (
	MethodMass             = "mass"
	MethodStandardQuantity = "standard_quantity"
	MethodDensity          = "density"
	MethodCategoryEstimate = "category_estimate"
	MethodPinch            = "pinch"
)

var descriptorGrams = regexp.MustCompile(`\((?:約|about|approx\.?)?\s*(\d+(?:\.\d+)?)\s*(mg|kg|g|グラム)\s*\)`)

// descriptor is a parsed standard-quantity text such as "1 serving (200g)".
type descriptor struct {
	value float64
	unit  unitDef
	grams float64
}

// ConvertToGrams converts a parsed quantity using, in order of confidence, the
// unit's own mass, the food's standard-quantity descriptor, and category
// weight and density tables.
func (p *Parser) ConvertToGrams(q domain.Quantity, food domain.FoodProfile) (domain.GramsResult, error) {
	if math.IsNaN(q.Value) || math.IsInf(q.Value, 0) || q.Value < 0 {
		return domain.GramsResult{}, domain.WrapError(domain.ErrQuantityParse, "convert quantity", fmt.Errorf("invalid amount %v", q.Value))
	}
	def, ok := lookupUnit(q.Unit)
	if !ok {
		return domain.GramsResult{}, domain.WrapError(domain.ErrUnknownUnit, "convert quantity", fmt.Errorf("unit %q", q.Unit))
	}

	switch def.kind {
	case domain.UnitKindMass:
		return domain.GramsResult{Grams: q.Value * def.factor, Confidence: 1, Method: MethodMass}, nil
	case domain.UnitKindVolume:
		return convertVolume(q.Value, def, food), nil
	case domain.UnitKindPinch:
		return domain.GramsResult{Grams: q.Value * pinchGrams, Confidence: 0.7, Method: MethodPinch}, nil
	default:
		return convertCounted(q.Value, def, food), nil
	}
}

func convertVolume(value float64, def unitDef, food domain.FoodProfile) domain.GramsResult {
	ml := value * def.factor
	if d, ok := parseDescriptor(food.StandardQuantity); ok && d.unit.kind == domain.UnitKindVolume {
		perMl := d.grams / (d.value * d.unit.factor)
		confidence := 0.9
		if d.unit.canonical == def.canonical {
			confidence = 0.95
		}
		return domain.GramsResult{Grams: ml * perMl, Confidence: confidence, Method: MethodStandardQuantity}
	}

	profile, known := profileFor(food)
	confidence := 0.7
	if known {
		confidence = 0.8
	}
	return domain.GramsResult{Grams: ml * profile.density, Confidence: confidence, Method: MethodDensity}
}

func convertCounted(value float64, def unitDef, food domain.FoodProfile) domain.GramsResult {
	if d, ok := parseDescriptor(food.StandardQuantity); ok {
		switch {
		case d.unit.canonical == def.canonical:
			return domain.GramsResult{Grams: value / d.value * d.grams, Confidence: 0.95, Method: MethodStandardQuantity}
		case d.unit.kind == def.kind:
			return domain.GramsResult{Grams: value / d.value * d.grams, Confidence: 0.85, Method: MethodStandardQuantity}
		case d.unit.kind == domain.UnitKindCount || d.unit.kind == domain.UnitKindServing:
			return domain.GramsResult{Grams: value / d.value * d.grams, Confidence: 0.75, Method: MethodStandardQuantity}
		case d.unit.kind == domain.UnitKindMass:
			// A bare weight such as "200g" is read as the weight of one unit.
			return domain.GramsResult{Grams: value * d.grams, Confidence: 0.75, Method: MethodStandardQuantity}
		}
	}

	profile, known := profileFor(food)
	perUnit := profile.pieceGrams
	if def.kind == domain.UnitKindServing {
		perUnit = profile.servingGrams
	}
	confidence := 0.5
	if known {
		confidence = 0.6
	}
	return domain.GramsResult{Grams: value * perUnit, Confidence: confidence, Method: MethodCategoryEstimate}
}

// parseDescriptor reads "1 serving (200g)", "1個(50g)", "大さじ1(12g)" or a bare
// "150g". It reports false when no gram weight can be recovered.
func parseDescriptor(text string) (descriptor, bool) {
	s := normalizeText(text)
	if s == "" {
		return descriptor{}, false
	}

	if m := descriptorGrams.FindStringSubmatchIndex(s); m != nil {
		grams, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil || grams <= 0 {
			return descriptor{}, false
		}
		massUnit, _ := lookupUnit(s[m[4]:m[5]])
		grams *= massUnit.factor

		head := strings.TrimSpace(s[:m[0]])
		if head == "" {
			return descriptor{value: 1, unit: massUnit, grams: grams}, true
		}
		e, err := parseExpr(head, domain.FoodProfile{})
		if err != nil || e.value <= 0 {
			return descriptor{}, false
		}
		return descriptor{value: e.value, unit: e.unit, grams: grams}, true
	}

	e, err := parseExpr(s, domain.FoodProfile{})
	if err != nil || e.unit.kind != domain.UnitKindMass || e.value <= 0 {
		return descriptor{}, false
	}
	return descriptor{value: 1, unit: e.unit, grams: e.value * e.unit.factor}, true
}
