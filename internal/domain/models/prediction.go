package models

import (
	"fmt"
	"time"
)

// DefaultHighRiskThreshold is the cut the text views use when no threshold is given.
const DefaultHighRiskThreshold = 0.5

// ScoreRequest is one raw scoring request as it arrives over HTTP or Kafka.
type ScoreRequest struct {
	RequestID  string             `json:"request_id,omitempty"`
	CustomerID string             `json:"customer_id,omitempty"`
	Features   map[string]float64 `json:"features"`
}

// PredictionResult is the immutable outcome of one pass through the pipeline.
// A Degraded result carries Label 0 and Probability 0 with Error set.
type PredictionResult struct {
	ID          string        `json:"id"`
	RequestID   string        `json:"request_id,omitempty"`
	CustomerID  string        `json:"customer_id,omitempty"`
	Label       int           `json:"label"`
	Probability float64       `json:"probability"`
	ModelName   string        `json:"model_name"`
	RiskScore   float64       `json:"risk_score"`
	Threshold   float64       `json:"threshold_used"`
	Overlay     OverlayConfig `json:"overlay_used"`
	Tier        Tier          `json:"tier"`
	RawInput    FeatureVector `json:"raw_input"`
	Degraded    bool          `json:"degraded"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (r *PredictionResult) IsHighRisk(threshold float64) bool {
	return r.Probability >= threshold
}

func (r *PredictionResult) RiskLabelText() string {
	if r.IsHighRisk(DefaultHighRiskThreshold) {
		return "High risk"
	}
	return "Low risk"
}

func (r *PredictionResult) ProbabilityPercentageText() string {
	return fmt.Sprintf("%.1f%%", r.Probability*100)
}
