package api

import "CreditRisk/internal/domain/models"

type PredictRequest struct {
	RequestID  string             `json:"request_id" validate:"omitempty,max=128"`
	CustomerID string             `json:"customer_id" validate:"omitempty,max=128"`
	Features   map[string]float64 `json:"features"`
}

func (r PredictRequest) toDomain() models.ScoreRequest {
	return models.ScoreRequest{RequestID: r.RequestID, CustomerID: r.CustomerID, Features: r.Features}
}

type BatchPredictRequest struct {
	Items []PredictRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

type ReloadRequest struct {
	Path string `json:"path"`
}

type CalibrationQuery struct {
	Model string `query:"model"`
}

type HistoryQuery struct {
	CustomerID string `query:"customer_id" validate:"omitempty,max=128"`
	Model      string `query:"model"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type ReportQuery struct {
	From string `query:"from"`
	To   string `query:"to"`
}

type TierQuery struct {
	P string `query:"p" validate:"required"`
}

// PredictionView adds the display texts to a result.
type PredictionView struct {
	*models.PredictionResult
	RiskLabel       string `json:"risk_label"`
	ProbabilityText string `json:"probability_text"`
}

func newView(r *models.PredictionResult) PredictionView {
	return PredictionView{
		PredictionResult: r,
		RiskLabel:        r.RiskLabelText(),
		ProbabilityText:  r.ProbabilityPercentageText(),
	}
}

func newViews(rs []*models.PredictionResult) []PredictionView {
	out := make([]PredictionView, len(rs))
	for i, r := range rs {
		out[i] = newView(r)
	}
	return out
}

type TierResponse struct {
	Probability float64     `json:"probability"`
	Tier        models.Tier `json:"tier"`
}
