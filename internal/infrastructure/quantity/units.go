package quantity

import (
	"sort"
	"strings"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

type unitDef struct {
	canonical string
	kind      domain.UnitKind
	// factor is grams per unit for mass, millilitres per unit for volume.
	factor float64
}

var unitTable = map[string]unitDef{}

// unitTokens holds every spelling, longest first, for prefix matching.
var unitTokens []string

func register(def unitDef, spellings ...string) {
	for _, s := range spellings {
		unitTable[s] = def
	}
}

func init() {
	register(unitDef{"mg", domain.UnitKindMass, 0.001}, "mg", "milligram", "milligrams", "ミリグラム")
	register(unitDef{"g", domain.UnitKindMass, 1}, "g", "gr", "gram", "grams", "グラム", "グラム分")
	register(unitDef{"kg", domain.UnitKindMass, 1000}, "kg", "kilogram", "kilograms", "キロ", "キログラム")
	register(unitDef{"oz", domain.UnitKindMass, 28.3495}, "oz", "ounce", "ounces")
	register(unitDef{"lb", domain.UnitKindMass, 453.592}, "lb", "lbs", "pound", "pounds")

	register(unitDef{"ml", domain.UnitKindVolume, 1}, "ml", "cc", "milliliter", "milliliters", "millilitre", "ミリリットル")
	register(unitDef{"dl", domain.UnitKindVolume, 100}, "dl", "deciliter")
	register(unitDef{"l", domain.UnitKindVolume, 1000}, "l", "liter", "liters", "litre", "litres", "リットル")
	register(unitDef{"cup", domain.UnitKindVolume, 240}, "cup", "cups")
	register(unitDef{"カップ", domain.UnitKindVolume, 200}, "カップ")
	register(unitDef{"tbsp", domain.UnitKindVolume, 15}, "tbsp", "tablespoon", "tablespoons", "大さじ", "大匙")
	register(unitDef{"tsp", domain.UnitKindVolume, 5}, "tsp", "teaspoon", "teaspoons", "小さじ", "小匙")

	register(unitDef{domain.DefaultCountUnit, domain.UnitKindCount, 0}, "piece", "pieces", "pc", "pcs", "個", "こ", "つ")
	register(unitDef{"本", domain.UnitKindCount, 0}, "本")
	register(unitDef{"枚", domain.UnitKindCount, 0}, "枚")
	register(unitDef{"slice", domain.UnitKindCount, 0}, "slice", "slices", "切れ", "切")
	register(unitDef{"粒", domain.UnitKindCount, 0}, "粒")
	register(unitDef{"玉", domain.UnitKindCount, 0}, "玉")
	register(unitDef{"片", domain.UnitKindCount, 0}, "片", "clove", "cloves")
	register(unitDef{"丁", domain.UnitKindCount, 0}, "丁")
	register(unitDef{"尾", domain.UnitKindCount, 0}, "尾", "匹")
	register(unitDef{"房", domain.UnitKindCount, 0}, "房", "bunch", "bunches")

	register(unitDef{"serving", domain.UnitKindServing, 0}, "serving", "servings", "portion", "portions", "人前", "人分", "食")
	register(unitDef{"杯", domain.UnitKindServing, 0}, "杯")
	register(unitDef{"皿", domain.UnitKindServing, 0}, "皿", "plate", "plates")
	register(unitDef{"膳", domain.UnitKindServing, 0}, "膳")
	register(unitDef{"bowl", domain.UnitKindServing, 0}, "bowl", "bowls")
	register(unitDef{"pack", domain.UnitKindServing, 0}, "pack", "packs", "パック")
	register(unitDef{"缶", domain.UnitKindServing, 0}, "缶", "can", "cans")
	register(unitDef{"袋", domain.UnitKindServing, 0}, "袋", "bag", "bags")

	register(unitDef{"pinch", domain.UnitKindPinch, 0}, "pinch", "pinches", "少々", "ひとつまみ", "少量")

	for token := range unitTable {
		unitTokens = append(unitTokens, token)
	}
	sort.Slice(unitTokens, func(i, j int) bool {
		if len(unitTokens[i]) != len(unitTokens[j]) {
			return len(unitTokens[i]) > len(unitTokens[j])
		}
		return unitTokens[i] < unitTokens[j]
	})
}

func lookupUnit(unit string) (unitDef, bool) {
	def, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	return def, ok
}

// matchUnitPrefix returns the longest unit spelling that starts s and ends at
// a token boundary, and the remaining text.
func matchUnitPrefix(s string) (unitDef, string, bool) {
	for _, token := range unitTokens {
		if !strings.HasPrefix(s, token) {
			continue
		}
		rest := s[len(token):]
		if rest != "" && isASCIILetter(token[len(token)-1]) && isASCIILetter(rest[0]) {
			continue
		}
		return unitTable[token], rest, true
	}
	return unitDef{}, s, false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

type categoryProfile struct {
	keywords []string
	// density in g/ml.
	density float64
	// grams per counted piece and per serving.
	pieceGrams   float64
	servingGrams float64
}

// categoryProfiles are consulted in order; the first keyword hit wins.
var categoryProfiles = []categoryProfile{
	{keywords: []string{"oil", "fat", "油"}, density: 0.92, pieceGrams: 10, servingGrams: 12},
	{keywords: []string{"egg", "卵", "たまご"}, density: 1.03, pieceGrams: 50, servingGrams: 50},
	{keywords: []string{"dairy", "milk", "yogurt", "乳"}, density: 1.03, pieceGrams: 100, servingGrams: 200},
	{keywords: []string{"beverage", "drink", "juice", "飲料", "飲み物"}, density: 1.0, pieceGrams: 350, servingGrams: 200},
	{keywords: []string{"soup", "汁", "スープ"}, density: 1.0, pieceGrams: 200, servingGrams: 200},
	{keywords: []string{"noodle", "pasta", "麺"}, density: 0.6, pieceGrams: 200, servingGrams: 250},
	{keywords: []string{"rice", "grain", "cereal", "穀", "米", "ご飯", "飯"}, density: 0.85, pieceGrams: 100, servingGrams: 150},
	{keywords: []string{"bread", "パン"}, density: 0.3, pieceGrams: 60, servingGrams: 60},
	{keywords: []string{"fruit", "果物", "果実"}, density: 0.6, pieceGrams: 150, servingGrams: 150},
	{keywords: []string{"vegetable", "野菜"}, density: 0.5, pieceGrams: 100, servingGrams: 80},
	{keywords: []string{"meat", "肉"}, density: 1.05, pieceGrams: 100, servingGrams: 100},
	{keywords: []string{"fish", "seafood", "魚", "魚介"}, density: 1.05, pieceGrams: 80, servingGrams: 80},
	{keywords: []string{"bean", "soy", "豆"}, density: 0.8, pieceGrams: 50, servingGrams: 50},
	{keywords: []string{"sweet", "dessert", "snack", "confection", "菓子"}, density: 0.6, pieceGrams: 40, servingGrams: 50},
	{keywords: []string{"seasoning", "sauce", "condiment", "sugar", "salt", "調味料", "砂糖", "塩"}, density: 1.1, pieceGrams: 5, servingGrams: 15},
	{keywords: []string{"flour", "powder", "粉"}, density: 0.55, pieceGrams: 10, servingGrams: 30},
}

var genericProfile = categoryProfile{density: 1.0, pieceGrams: 100, servingGrams: 200}

// profileFor resolves a category, then the food name, to a weight profile.
func profileFor(food domain.FoodProfile) (categoryProfile, bool) {
	for _, text := range []string{food.Category, food.Name} {
		t := strings.ToLower(text)
		if t == "" {
			continue
		}
		words := strings.FieldsFunc(t, func(r rune) bool {
			return r == ' ' || r == '_' || r == '-' || r == '/' || r == ','
		})
		for _, p := range categoryProfiles {
			for _, kw := range p.keywords {
				if containsKeyword(t, words, kw) {
					return p, true
				}
			}
		}
	}
	return genericProfile, false
}

// containsKeyword matches ASCII keywords at word starts so "oil" does not hit
// "boiled"; other scripts match anywhere.
func containsKeyword(text string, words []string, kw string) bool {
	if !isASCIILetter(kw[0]) {
		return strings.Contains(text, kw)
	}
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
	}
	return false
}

// pinchGrams approximates one pinch of a seasoning.
const pinchGrams = 0.5
