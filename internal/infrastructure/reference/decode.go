package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset"
)

var errMissingFoods = errors.New(`top-level "foods" object is missing`)

type rawFood struct {
	Name             string             `json:"name" yaml:"name"`
	Category         string             `json:"category" yaml:"category"`
	Aliases          []string           `json:"aliases" yaml:"aliases"`
	StandardQuantity string             `json:"standard_quantity" yaml:"standard_quantity"`
	BasisGrams       *float64           `json:"basis_grams" yaml:"basis_grams"`
	SourceConfidence *float64           `json:"source_confidence" yaml:"source_confidence"`
	Nutrients        map[string]float64 `json:"nutrients" yaml:"nutrients"`
}

// decodedRecord is the validation outcome for one dataset entry: either a
// validRecord or an invalidRecord.
type decodedRecord interface {
	recordID() string
}

type validRecord struct {
	record *domain.FoodRecord
}

type invalidRecord struct {
	id     string
	reason string
}

func (v validRecord) recordID() string   { return v.record.ID }
func (v invalidRecord) recordID() string { return v.id }

type decodedDataset struct {
	version string
	entries []decodedRecord
	// shapeErr is set when the payload is readable but not a dataset.
	shapeErr error
}

func decodeDataset(payload ports.DatasetPayload) decodedDataset {
	switch payload.Format {
	case dataset.FormatYAML:
		return decodeYAML(payload.Data)
	default:
		return decodeJSON(payload.Data)
	}
}

func decodeJSON(data []byte) decodedDataset {
	var doc struct {
		Version any                        `json:"version"`
		Foods   map[string]json.RawMessage `json:"foods"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return decodedDataset{shapeErr: fmt.Errorf("decode json dataset: %w", err)}
	}
	if doc.Foods == nil {
		return decodedDataset{version: versionString(doc.Version), shapeErr: errMissingFoods}
	}

	out := decodedDataset{version: versionString(doc.Version)}
	for id, raw := range doc.Foods {
		var food rawFood
		if err := json.Unmarshal(raw, &food); err != nil {
			out.entries = append(out.entries, invalidRecord{id: id, reason: err.Error()})
			continue
		}
		out.entries = append(out.entries, validate(id, food))
	}
	sortEntries(out.entries)
	return out
}

func decodeYAML(data []byte) decodedDataset {
	var doc struct {
		Version any                  `yaml:"version"`
		Foods   map[string]yaml.Node `yaml:"foods"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return decodedDataset{shapeErr: fmt.Errorf("decode yaml dataset: %w", err)}
	}
	if doc.Foods == nil {
		return decodedDataset{version: versionString(doc.Version), shapeErr: errMissingFoods}
	}

	out := decodedDataset{version: versionString(doc.Version)}
	for id, node := range doc.Foods {
		var food rawFood
		if err := node.Decode(&food); err != nil {
			out.entries = append(out.entries, invalidRecord{id: id, reason: err.Error()})
			continue
		}
		out.entries = append(out.entries, validate(id, food))
	}
	sortEntries(out.entries)
	return out
}

func validate(id string, food rawFood) decodedRecord {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidRecord{id: id, reason: "empty id"}
	}
	name := strings.TrimSpace(food.Name)
	if name == "" {
		return invalidRecord{id: id, reason: "empty name"}
	}

	basis := domain.DefaultBasisGrams
	if food.BasisGrams != nil {
		if !finite(*food.BasisGrams) || *food.BasisGrams <= 0 {
			return invalidRecord{id: id, reason: "basis_grams must be positive"}
		}
		basis = *food.BasisGrams
	}

	confidence := 1.0
	if food.SourceConfidence != nil {
		if !finite(*food.SourceConfidence) {
			return invalidRecord{id: id, reason: "source_confidence is not a number"}
		}
		confidence = math.Min(1, math.Max(0, *food.SourceConfidence))
	}

	var nutrients domain.NutrientSet
	for key, value := range food.Nutrients {
		if !finite(value) || value < 0 {
			return invalidRecord{id: id, reason: fmt.Sprintf("nutrient %s must be a non-negative number", key)}
		}
		setNutrient(&nutrients, key, value)
	}

	aliases := make([]string, 0, len(food.Aliases))
	for _, alias := range food.Aliases {
		if a := strings.TrimSpace(alias); a != "" {
			aliases = append(aliases, a)
		}
	}

	return validRecord{record: &domain.FoodRecord{
		ID:               id,
		Name:             name,
		Category:         strings.TrimSpace(food.Category),
		Aliases:          aliases,
		StandardQuantity: strings.TrimSpace(food.StandardQuantity),
		BasisGrams:       basis,
		Nutrients:        nutrients,
		SourceConfidence: confidence,
	}}
}

// setNutrient ignores keys outside the fixed nutrient set.
func setNutrient(n *domain.NutrientSet, key string, value float64) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case domain.NutrientCalories, "energy", "energy_kcal":
		n.Calories = value
	case domain.NutrientProtein:
		n.Protein = value
	case domain.NutrientIron:
		n.Iron = value
	case domain.NutrientFolicAcid, "folate":
		n.FolicAcid = value
	case domain.NutrientCalcium:
		n.Calcium = value
	case domain.NutrientVitaminD, "vitamind":
		n.VitaminD = value
	}
}

func sortEntries(entries []decodedRecord) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].recordID() < entries[j].recordID()
	})
}

func versionString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
