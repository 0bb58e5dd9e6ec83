package domain

// Nutrient keys of the fixed nutrient set carried by every reference record.
const (
	NutrientCalories  = "calories"
	NutrientProtein   = "protein"
	NutrientIron      = "iron"
	NutrientFolicAcid = "folic_acid"
	NutrientCalcium   = "calcium"
	NutrientVitaminD  = "vitamin_d"
)

// DefaultBasisGrams is the reference amount nutrient values are expressed against
// unless a record declares its own basis.
const DefaultBasisGrams = 100.0

// NutrientDef describes one member of the fixed nutrient set.
type NutrientDef struct {
	Key  string
	Unit string
}

// NutrientCatalog lists the nutrient set in report order.
var NutrientCatalog = []NutrientDef{
	{Key: NutrientCalories, Unit: "kcal"},
	{Key: NutrientProtein, Unit: "g"},
	{Key: NutrientIron, Unit: "mg"},
	{Key: NutrientFolicAcid, Unit: "µg"},
	{Key: NutrientCalcium, Unit: "mg"},
	{Key: NutrientVitaminD, Unit: "µg"},
}

type NutrientSet struct {
	Calories  float64 `json:"calories" yaml:"calories"`
	Protein   float64 `json:"protein" yaml:"protein"`
	Iron      float64 `json:"iron" yaml:"iron"`
	FolicAcid float64 `json:"folic_acid" yaml:"folic_acid"`
	Calcium   float64 `json:"calcium" yaml:"calcium"`
	VitaminD  float64 `json:"vitamin_d" yaml:"vitamin_d"`
}

// Get returns the value for a nutrient key and whether the key is known.
func (n NutrientSet) Get(key string) (float64, bool) {
	switch key {
	case NutrientCalories:
		return n.Calories, true
	case NutrientProtein:
		return n.Protein, true
	case NutrientIron:
		return n.Iron, true
	case NutrientFolicAcid:
		return n.FolicAcid, true
	case NutrientCalcium:
		return n.Calcium, true
	case NutrientVitaminD:
		return n.VitaminD, true
	default:
		return 0, false
	}
}

func (n NutrientSet) Scale(factor float64) NutrientSet {
	return NutrientSet{
		Calories:  n.Calories * factor,
		Protein:   n.Protein * factor,
		Iron:      n.Iron * factor,
		FolicAcid: n.FolicAcid * factor,
		Calcium:   n.Calcium * factor,
		VitaminD:  n.VitaminD * factor,
	}
}

func (n NutrientSet) Add(other NutrientSet) NutrientSet {
	return NutrientSet{
		Calories:  n.Calories + other.Calories,
		Protein:   n.Protein + other.Protein,
		Iron:      n.Iron + other.Iron,
		FolicAcid: n.FolicAcid + other.FolicAcid,
		Calcium:   n.Calcium + other.Calcium,
		VitaminD:  n.VitaminD + other.VitaminD,
	}
}

// FoodRecord is one entry of the reference nutrition dataset. Records are
// immutable once published by the reference store.
type FoodRecord struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Category         string      `json:"category"`
	Aliases          []string    `json:"aliases,omitempty"`
	StandardQuantity string      `json:"standard_quantity,omitempty"`
	BasisGrams       float64     `json:"basis_grams"`
	Nutrients        NutrientSet `json:"nutrients"`
	SourceConfidence float64     `json:"source_confidence"`
}

// Profile returns the attributes quantity conversion needs from a record.
func (r FoodRecord) Profile() FoodProfile {
	return FoodProfile{
		Name:             r.Name,
		Category:         r.Category,
		StandardQuantity: r.StandardQuantity,
		Aliases:          r.Aliases,
	}
}

// FoodProfile is the store-independent view of a food used by the quantity parser.
type FoodProfile struct {
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	StandardQuantity string   `json:"standard_quantity"`
	Aliases          []string `json:"aliases,omitempty"`
}

// FoodCandidate is a search hit with its similarity in [0,1].
type FoodCandidate struct {
	Record     *FoodRecord `json:"record"`
	Similarity float64     `json:"similarity"`
}

// ReferenceStats describes the currently published reference snapshot.
type ReferenceStats struct {
	Version     string `json:"version"`
	Source      string `json:"source"`
	Records     int    `json:"records"`
	Names       int    `json:"names"`
	Aliases     int    `json:"aliases"`
	Skipped     int    `json:"skipped"`
	Generation  uint64 `json:"generation"`
	LoadedAtUTC string `json:"loaded_at"`
}
