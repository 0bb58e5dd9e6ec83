package domain

type UnitKind string

const (
	UnitKindMass    UnitKind = "mass"
	UnitKindVolume  UnitKind = "volume"
	UnitKindCount   UnitKind = "count"
	UnitKindServing UnitKind = "serving"
	UnitKindPinch   UnitKind = "pinch"
)

// DefaultCountUnit is assumed when a quantity names no unit.
const DefaultCountUnit = "piece"

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type ParsedQuantity struct {
	Quantity   Quantity `json:"quantity"`
	Confidence float64  `json:"confidence"`
}

type GramsResult struct {
	Grams      float64 `json:"grams"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method,omitempty"`
}
