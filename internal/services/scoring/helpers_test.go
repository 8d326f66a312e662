package scoring

import (
	"context"
	"errors"
	"sync"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
)

func baseFeatures() map[string]float64 {
	raw := make(map[string]float64, models.FeatureCount)
	for _, n := range models.FeatureNames() {
		raw[n] = 0
	}
	raw[models.FeatureLimitBal] = 50_000
	raw[models.FeatureSex] = 2
	raw[models.FeatureEducation] = 2
	raw[models.FeatureMarriage] = 1
	raw[models.FeatureAge] = 35
	for m := 1; m <= 12; m++ {
		raw[billName(m)] = 12_000
		raw[payAmtName(m)] = 1_500
	}
	return raw
}

func billName(m int) string   { return models.FeatureNames()[16+m] }
func payAmtName(m int) string { return models.FeatureNames()[28+m] }

type stubModel struct {
	mu         sync.Mutex
	name       string
	infer      func(models.FeatureVector) (float64, error)
	calls      int
	batchCalls int
}

func fixedModel(p float64) *stubModel {
	return &stubModel{name: "Stub", infer: func(models.FeatureVector) (float64, error) { return p, nil }}
}

func (m *stubModel) Name() string { return m.name }

func (m *stubModel) Infer(_ context.Context, v models.FeatureVector) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.infer(v)
}

func (m *stubModel) InferBatch(_ context.Context, vs []models.FeatureVector) ([]float64, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	out := make([]float64, len(vs))
	for i, v := range vs {
		p, err := m.infer(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

type stubSource struct {
	mu        sync.Mutex
	cal       *models.Calibration
	err       error
	loads     int
	refreshed int
}

func (s *stubSource) Load(context.Context) (*models.Calibration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.cal, nil
}

func (s *stubSource) Refresh(context.Context) {
	s.mu.Lock()
	s.refreshed++
	s.mu.Unlock()
}

func (s *stubSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func missingSource() *stubSource {
	return &stubSource{err: repository.ErrCalibrationNotFound}
}

type panicSource struct{}

func (panicSource) Load(context.Context) (*models.Calibration, error) { panic("corrupt") }

type countingMetrics struct {
	mu          sync.Mutex
	predictions int
	degraded    int
	fallbacks   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{fallbacks: map[string]int{}}
}

func (m *countingMetrics) RecordPrediction(string, int, models.Tier, float64) {
	m.mu.Lock()
	m.predictions++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordDegraded(string) {
	m.mu.Lock()
	m.degraded++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordCalibrationFallback(kind string) {
	m.mu.Lock()
	m.fallbacks[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordError(string)            {}
func (m *countingMetrics) RecordLatency(string, float64) {}

var errBoom = errors.New("boom")
