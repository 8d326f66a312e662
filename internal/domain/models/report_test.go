package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioSummaryAdd(t *testing.T) {
	s := NewPortfolioSummary(time.Time{}, time.Time{}, 0.6)
	for _, r := range []*PredictionResult{
		{Probability: 0.1, RiskScore: 0.1, Tier: TierVeryLow},
		{Probability: 0.6, RiskScore: 0.5, Tier: TierHigh, Label: 1},
		{Probability: 0.59, RiskScore: 0.59, Tier: TierMedium, Label: 1},
		{Probability: 0.9, RiskScore: 1.0, Tier: TierVeryHigh, Label: 1},
		{Degraded: true, Tier: TierVeryLow},
		nil,
	} {
		s.Add(r)
	}

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Degraded)
	assert.Equal(t, 2, s.HighRisk)
	assert.Equal(t, 3, s.PositiveLabels)
	assert.InDelta(t, 0.5, s.HighRiskRate, 1e-12)
	assert.InDelta(t, (0.1+0.6+0.59+0.9)/4, s.AvgProbability, 1e-12)
	assert.InDelta(t, (0.1+0.5+0.59+1.0)/4, s.AvgRiskScore, 1e-12)
	assert.Equal(t, 1, s.Tiers[TierVeryLow])
	assert.Equal(t, 0, s.Tiers[TierLow])
	assert.Len(t, s.Tiers, 5)
}

func TestPortfolioSummaryEmpty(t *testing.T) {
	s := NewPortfolioSummary(time.Time{}, time.Time{}, 0.6)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.HighRiskRate)
	assert.Equal(t, 0.6, s.HighRiskCut)
	assert.Len(t, s.Tiers, 5)
}

func TestPortfolioSummaryAddAggregate(t *testing.T) {
	s := NewPortfolioSummary(time.Time{}, time.Time{}, 0.6)
	// degraded rows are stored with the VeryLow tier and must not inflate it
	s.AddAggregate(TierAggregate{Tier: TierVeryLow, Total: 100000, Degraded: 20000, SumProbability: 8000, SumRiskScore: 8000})
	s.AddAggregate(TierAggregate{Tier: TierHigh, Total: 50000, HighRisk: 30000, PositiveLabels: 50000, SumProbability: 35000, SumRiskScore: 36000})

	assert.Equal(t, 150000, s.Total)
	assert.Equal(t, 20000, s.Degraded)
	assert.Equal(t, 80000, s.Tiers[TierVeryLow])
	assert.Equal(t, 50000, s.Tiers[TierHigh])
	assert.Equal(t, 30000, s.HighRisk)
	assert.InDelta(t, 30000.0/130000.0, s.HighRiskRate, 1e-12)
	assert.InDelta(t, 43000.0/130000.0, s.AvgProbability, 1e-12)
	assert.InDelta(t, 44000.0/130000.0, s.AvgRiskScore, 1e-12)
}
