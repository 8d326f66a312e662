package analytics

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"CreditRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeros() []float64 { return make([]float64, models.FeatureCount) }

func TestLogisticInterceptOnly(t *testing.T) {
	m, err := NewLogisticModel(LogisticArtifact{Intercept: 0, Coefficients: zeros()})
	require.NoError(t, err)

	p, err := m.Infer(context.Background(), models.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
	assert.Equal(t, "LogisticRegression", m.Name())
}

func TestLogisticStandardizes(t *testing.T) {
	coef, means, scales := zeros(), zeros(), zeros()
	i, _ := models.FeatureIndex(models.FeaturePay0)
	coef[i], means[i], scales[i] = 2, 1, 0.5
	j, _ := models.FeatureIndex(models.FeatureAge)
	coef[j], scales[j] = 1, 0 // zero scale behaves as 1

	m, err := NewLogisticModel(LogisticArtifact{Name: "LR", Intercept: -1, Coefficients: coef, Means: means, Scales: scales})
	require.NoError(t, err)

	var v models.FeatureVector
	v[i] = 2
	v[j] = 0.25
	// z = -1 + 2*(2-1)/0.5 + 0.25 = 3.25
	p, err := m.Infer(context.Background(), v)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-3.25)), p, 1e-12)
}

func TestLogisticExtremeInputsStayInRange(t *testing.T) {
	coef := zeros()
	coef[0] = 1
	m, err := NewLogisticModel(LogisticArtifact{Coefficients: coef})
	require.NoError(t, err)

	var hi, lo models.FeatureVector
	hi[0], lo[0] = 1e6, -1e6
	p, _ := m.Infer(context.Background(), hi)
	assert.Equal(t, 1.0, p)
	p, _ = m.Infer(context.Background(), lo)
	assert.Equal(t, 0.0, p)
}

func TestLogisticBatchMatchesSingle(t *testing.T) {
	coef := zeros()
	coef[0], coef[4] = 1e-5, 0.02
	m, err := NewLogisticModel(LogisticArtifact{Intercept: -0.3, Coefficients: coef})
	require.NoError(t, err)

	vs := make([]models.FeatureVector, 4)
	for k := range vs {
		vs[k][0] = float64(k) * 50_000
		vs[k][4] = float64(20 + k*10)
	}
	got, err := m.InferBatch(context.Background(), vs)
	require.NoError(t, err)
	for k, v := range vs {
		p, _ := m.Infer(context.Background(), v)
		assert.Equal(t, p, got[k])
	}
}

func TestNewLogisticModelRejectsBadShape(t *testing.T) {
	tests := []struct {
		name string
		a    LogisticArtifact
	}{
		{"short coefficients", LogisticArtifact{Coefficients: make([]float64, 23)}},
		{"short means", LogisticArtifact{Coefficients: zeros(), Means: []float64{1}}},
		{"short scales", LogisticArtifact{Coefficients: zeros(), Scales: []float64{1, 2}}},
		{"nan intercept", LogisticArtifact{Intercept: math.NaN(), Coefficients: zeros()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogisticModel(tt.a)
			assert.Error(t, err)
		})
	}
}

func TestLoadLogisticModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	b, err := json.Marshal(LogisticArtifact{Name: "LR-v2", Intercept: 0.1, Coefficients: zeros()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	m, err := LoadLogisticModel(path)
	require.NoError(t, err)
	assert.Equal(t, "LR-v2", m.Name())

	_, err = LoadLogisticModel(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadLogisticModel(path)
	assert.Error(t, err)
}

func TestLocalLoaderDefaultsToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	b, err := json.Marshal(LogisticArtifact{Name: "Configured", Coefficients: zeros()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	m, err := LocalLoader{path: path}.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Configured", m.Name())
}
