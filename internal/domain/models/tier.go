package models

type Tier string

const (
	TierVeryLow  Tier = "VeryLow"
	TierLow      Tier = "Low"
	TierMedium   Tier = "Medium"
	TierHigh     Tier = "High"
	TierVeryHigh Tier = "VeryHigh"
)

// Tiers lists every tier from lowest to highest risk.
func Tiers() []Tier {
	return []Tier{TierVeryLow, TierLow, TierMedium, TierHigh, TierVeryHigh}
}
