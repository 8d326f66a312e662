package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"CreditRisk/internal/domain/models"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/pkg/util"
)

var ErrArtifactShape = errors.New("model artifact has wrong dimensions")

// LogisticArtifact is the on-disk form of a fitted logistic regression.
// Arrays are indexed in canonical feature order. Means and scales are
// optional; missing ones leave the raw feature unstandardized.
type LogisticArtifact struct {
	Name         string    `json:"name"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means,omitempty"`
	Scales       []float64 `json:"scales,omitempty"`
}

// LogisticModel evaluates sigmoid(intercept + Σ coef_i * (x_i - mean_i) / scale_i).
// It holds no mutable state.
type LogisticModel struct {
	name      string
	intercept float64
	coef      [models.FeatureCount]float64
	mean      [models.FeatureCount]float64
	scale     [models.FeatureCount]float64
}

func NewLogisticModel(a LogisticArtifact) (*LogisticModel, error) {
	if len(a.Coefficients) != models.FeatureCount {
		return nil, fmt.Errorf("%w: %d coefficients, want %d", ErrArtifactShape, len(a.Coefficients), models.FeatureCount)
	}
	if a.Means != nil && len(a.Means) != models.FeatureCount {
		return nil, fmt.Errorf("%w: %d means", ErrArtifactShape, len(a.Means))
	}
	if a.Scales != nil && len(a.Scales) != models.FeatureCount {
		return nil, fmt.Errorf("%w: %d scales", ErrArtifactShape, len(a.Scales))
	}
	if !util.IsFinite(a.Intercept) {
		return nil, fmt.Errorf("intercept is not finite")
	}

	m := &LogisticModel{name: a.Name, intercept: a.Intercept}
	if m.name == "" {
		m.name = "LogisticRegression"
	}
	for i := 0; i < models.FeatureCount; i++ {
		m.coef[i] = a.Coefficients[i]
		m.scale[i] = 1
		if a.Means != nil {
			m.mean[i] = a.Means[i]
		}
		if a.Scales != nil && a.Scales[i] != 0 {
			m.scale[i] = a.Scales[i]
		}
		if !util.IsFinite(m.coef[i]) || !util.IsFinite(m.mean[i]) || !util.IsFinite(m.scale[i]) {
			return nil, fmt.Errorf("non-finite parameter for %s", models.FeatureNames()[i])
		}
	}
	return m, nil
}

// LoadLogisticModel reads a LogisticArtifact from a JSON file.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a LogisticArtifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return NewLogisticModel(a)
}

func (m *LogisticModel) Name() string { return m.name }

func (m *LogisticModel) Infer(_ context.Context, v models.FeatureVector) (float64, error) {
	z := m.intercept
	for i := 0; i < models.FeatureCount; i++ {
		z += m.coef[i] * (v[i] - m.mean[i]) / m.scale[i]
	}
	if math.IsNaN(z) {
		return 0, fmt.Errorf("linear predictor is NaN")
	}
	return sigmoid(z), nil
}

func (m *LogisticModel) InferBatch(ctx context.Context, vs []models.FeatureVector) ([]float64, error) {
	out := make([]float64, len(vs))
	for i, v := range vs {
		p, err := m.Infer(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// sigmoid avoids exp overflow for large |z|.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

var _ domsvc.ScoringModel = (*LogisticModel)(nil)
