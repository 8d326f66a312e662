package metrics

import (
	"strconv"

	"CreditRisk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	degraded      *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastRiskScore *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_predictions_total",
				Help: "Predictions produced, by model, label and tier",
			},
			[]string{"model", "label", "tier"},
		),
		degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_degraded_predictions_total",
				Help: "Predictions degraded because the model failed",
			},
			[]string{"model"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_calibration_fallback_total",
				Help: "Calibration lookups that fell back to defaults",
			},
			[]string{"kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditrisk_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"type"},
		),
		lastRiskScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditrisk_last_risk_score",
				Help: "Most recent risk score per model",
			},
			[]string{"model"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditrisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordPrediction(model string, label int, tier models.Tier, riskScore float64) {
	r.predictions.WithLabelValues(model, strconv.Itoa(label), string(tier)).Inc()
	r.lastRiskScore.WithLabelValues(model).Set(riskScore)
}

func (r *Recorder) RecordDegraded(model string) {
	r.degraded.WithLabelValues(model).Inc()
}

func (r *Recorder) RecordCalibrationFallback(kind string) {
	r.fallbacks.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything; handy where metrics are optional.
type Nop struct{}

func (Nop) RecordPrediction(string, int, models.Tier, float64) {}
func (Nop) RecordDegraded(string)                              {}
func (Nop) RecordCalibrationFallback(string)                   {}
func (Nop) RecordError(string)                                 {}
func (Nop) RecordLatency(string, float64)                      {}
