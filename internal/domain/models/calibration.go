package models

// OverlayFeature names the auxiliary signal an overlay blends in.
type OverlayFeature string

const (
	OverlayAge      OverlayFeature = "AGE"
	OverlayLimitBal OverlayFeature = "LIMIT_BAL"
	OverlayPay0     OverlayFeature = "PAY_0"
	OverlayNone     OverlayFeature = "NONE"
)

type OverlayConfig struct {
	Enabled bool           `json:"enabled"`
	Alpha   float64        `json:"alpha"`
	Beta    float64        `json:"beta"`
	Feature OverlayFeature `json:"feature"`
}

// DefaultOverlay is the overlay in effect whenever calibration cannot be read.
func DefaultOverlay() OverlayConfig {
	return OverlayConfig{Enabled: false, Alpha: 1.0, Beta: 0.0, Feature: OverlayNone}
}

// Calibration is the persisted artifact: per-model thresholds plus one overlay record.
type Calibration struct {
	Thresholds map[string]float64 `json:"thresholds"`
	Overlay    *OverlayConfig     `json:"overlay,omitempty"`
}
