package scoring

import (
	"math"

	"CreditRisk/internal/domain/models"
)

// Tier band lower bounds.
const (
	tierLowFrom      = 0.20
	tierMediumFrom   = 0.40
	tierHighFrom     = 0.60
	tierVeryHighFrom = 0.80
)

// Classify is 1 iff score >= threshold.
func Classify(score, threshold float64) int {
	if score >= threshold {
		return 1
	}
	return 0
}

// TierFor buckets p into five half-open bands; the top band includes 1.
// Below 0 (and NaN) is VeryLow, above 1 is VeryHigh.
func TierFor(p float64) models.Tier {
	switch {
	case math.IsNaN(p), p < tierLowFrom:
		return models.TierVeryLow
	case p < tierMediumFrom:
		return models.TierLow
	case p < tierHighFrom:
		return models.TierMedium
	case p < tierVeryHighFrom:
		return models.TierHigh
	default:
		return models.TierVeryHigh
	}
}
