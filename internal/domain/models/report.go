package models

import "time"

// HistoryFilter selects stored predictions. Zero values mean "no bound".
type HistoryFilter struct {
	CustomerID string
	ModelName  string
	From       time.Time
	To         time.Time
	Limit      int
}

// PortfolioSummary aggregates stored predictions for reporting. HighRisk
// counts probabilities at or above HighRiskCut, which is a reporting cut and
// not the per-model decision threshold.
type PortfolioSummary struct {
	From           time.Time    `json:"from"`
	To             time.Time    `json:"to"`
	Total          int          `json:"total"`
	HighRisk       int          `json:"high_risk"`
	HighRiskRate   float64      `json:"high_risk_rate"`
	HighRiskCut    float64      `json:"high_risk_cut"`
	PositiveLabels int          `json:"positive_labels"`
	Degraded       int          `json:"degraded"`
	AvgProbability float64      `json:"avg_probability"`
	AvgRiskScore   float64      `json:"avg_risk_score"`
	Tiers          map[Tier]int `json:"tiers"`

	scored         int
	sumProbability float64
	sumRiskScore   float64
}

// TierAggregate is one tier's share of a reporting window as a store
// computes it. HighRisk, PositiveLabels and the sums cover scored rows only.
type TierAggregate struct {
	Tier           Tier
	Total          int
	Degraded       int
	HighRisk       int
	PositiveLabels int
	SumProbability float64
	SumRiskScore   float64
}

// NewPortfolioSummary returns an empty summary with every tier present.
func NewPortfolioSummary(from, to time.Time, cut float64) *PortfolioSummary {
	s := &PortfolioSummary{
		From:        from,
		To:          to,
		HighRiskCut: cut,
		Tiers:       make(map[Tier]int, len(Tiers())),
	}
	for _, t := range Tiers() {
		s.Tiers[t] = 0
	}
	return s
}

// AddAggregate folds one group into the summary. Degraded rows count in
// Total and Degraded only; they carry no probability.
func (s *PortfolioSummary) AddAggregate(a TierAggregate) {
	if s.Tiers == nil {
		s.Tiers = make(map[Tier]int, len(Tiers()))
	}
	s.Total += a.Total
	s.Degraded += a.Degraded
	scored := a.Total - a.Degraded
	if scored <= 0 {
		return
	}
	s.Tiers[a.Tier] += scored
	s.HighRisk += a.HighRisk
	s.PositiveLabels += a.PositiveLabels
	s.scored += scored
	s.sumProbability += a.SumProbability
	s.sumRiskScore += a.SumRiskScore

	n := float64(s.scored)
	s.AvgProbability = s.sumProbability / n
	s.AvgRiskScore = s.sumRiskScore / n
	s.HighRiskRate = float64(s.HighRisk) / n
}

// Add folds a single stored result.
func (s *PortfolioSummary) Add(r *PredictionResult) {
	if r == nil {
		return
	}
	a := TierAggregate{Tier: r.Tier, Total: 1}
	if r.Degraded {
		a.Degraded = 1
	} else {
		a.PositiveLabels = r.Label
		a.SumProbability = r.Probability
		a.SumRiskScore = r.RiskScore
		if r.IsHighRisk(s.HighRiskCut) {
			a.HighRisk = 1
		}
	}
	s.AddAggregate(a)
}
