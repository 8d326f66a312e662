package analytics

import (
	"context"
	"fmt"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
)

// HTTPScoringModel delegates inference to a remote model service.
type HTTPScoringModel struct {
	name string
	base *HTTPServiceBase
}

func NewHTTPScoringModel(name string, base *HTTPServiceBase) *HTTPScoringModel {
	return &HTTPScoringModel{name: name, base: base}
}

type predictReq struct {
	Model    string    `json:"model"`
	Features []float64 `json:"features"`
	Names    []string  `json:"names"`
}

type predictResp struct {
	Probability float64 `json:"probability"`
}

type batchReq struct {
	Model     string      `json:"model"`
	Instances [][]float64 `json:"instances"`
	Names     []string    `json:"names"`
}

type batchResp struct {
	Probabilities []float64 `json:"probabilities"`
}

func (m *HTTPScoringModel) Name() string { return m.name }

func (m *HTTPScoringModel) Infer(ctx context.Context, v models.FeatureVector) (float64, error) {
	var resp predictResp
	err := m.base.PostJSON(ctx, "/predict", predictReq{
		Model:    m.name,
		Features: v.Slice(),
		Names:    models.FeatureNames(),
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("remote predict: %w", err)
	}
	return resp.Probability, nil
}

func (m *HTTPScoringModel) InferBatch(ctx context.Context, vs []models.FeatureVector) ([]float64, error) {
	instances := make([][]float64, len(vs))
	for i, v := range vs {
		instances[i] = v.Slice()
	}
	var resp batchResp
	err := m.base.PostJSON(ctx, "/predict/batch", batchReq{
		Model:     m.name,
		Instances: instances,
		Names:     models.FeatureNames(),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("remote predict batch: %w", err)
	}
	if len(resp.Probabilities) != len(vs) {
		return nil, fmt.Errorf("remote predict batch: got %d probabilities for %d instances", len(resp.Probabilities), len(vs))
	}
	return resp.Probabilities, nil
}

var _ domsvc.ScoringModel = (*HTTPScoringModel)(nil)
