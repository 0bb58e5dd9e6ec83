package domain

import "math"

type ConfidenceTier string

const (
	TierHigh    ConfidenceTier = "HIGH"
	TierMedium  ConfidenceTier = "MEDIUM"
	TierLow     ConfidenceTier = "LOW"
	TierVeryLow ConfidenceTier = "VERY_LOW"
	TierNone    ConfidenceTier = ""
)

// Tier cut-points. Scores below VeryLowFloor carry no tier.
const (
	HighFloor    = 0.8
	MediumFloor  = 0.6
	LowFloor     = 0.4
	VeryLowFloor = 0.2
)

// TierFor maps any real score to a tier. It is total and monotonic: NaN and
// everything below VeryLowFloor (negatives included) map to TierNone.
func TierFor(score float64) ConfidenceTier {
	switch {
	case math.IsNaN(score):
		return TierNone
	case score >= HighFloor:
		return TierHigh
	case score >= MediumFloor:
		return TierMedium
	case score >= LowFloor:
		return TierLow
	case score >= VeryLowFloor:
		return TierVeryLow
	default:
		return TierNone
	}
}

// Rank orders tiers for comparisons; TierNone ranks lowest.
func (t ConfidenceTier) Rank() int {
	switch t {
	case TierHigh:
		return 4
	case TierMedium:
		return 3
	case TierLow:
		return 2
	case TierVeryLow:
		return 1
	default:
		return 0
	}
}

// MatchResult is the outcome of resolving one raw food name. A nil
// *MatchResult means no match.
type MatchResult struct {
	Input      string         `json:"input"`
	Record     *FoodRecord    `json:"record"`
	Similarity float64        `json:"similarity"`
	Tier       ConfidenceTier `json:"tier"`
}

// TierDisplay is presentation metadata for a confidence score.
type TierDisplay struct {
	Level      string `json:"level"`
	ColorClass string `json:"colorClass"`
	Icon       string `json:"icon"`
	Message    string `json:"message"`
}

var tierDisplays = map[ConfidenceTier]TierDisplay{
	TierHigh: {
		Level:      "high",
		ColorClass: "text-green-600",
		Icon:       "check-circle",
		Message:    "high confidence",
	},
	TierMedium: {
		Level:      "medium",
		ColorClass: "text-yellow-600",
		Icon:       "info-circle",
		Message:    "medium confidence",
	},
	TierLow: {
		Level:      "low",
		ColorClass: "text-orange-600",
		Icon:       "exclamation-triangle",
		Message:    "low confidence, please review",
	},
	TierVeryLow: {
		Level:      "very_low",
		ColorClass: "text-red-600",
		Icon:       "exclamation-circle",
		Message:    "very low confidence, consider manual entry",
	},
}

var noTierDisplay = TierDisplay{
	Level:      "none",
	ColorClass: "text-gray-500",
	Icon:       "question-circle",
	Message:    "no confidence",
}

// DisplayFor returns display metadata for any real score.
func DisplayFor(score float64) TierDisplay {
	return DisplayForTier(TierFor(score))
}

func DisplayForTier(tier ConfidenceTier) TierDisplay {
	if d, ok := tierDisplays[tier]; ok {
		return d
	}
	return noTierDisplay
}
