package metrics

import (
	"testing"

	"CreditRisk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordPrediction("LogisticRegression", 1, models.TierHigh, 0.71)
	r.RecordPrediction("LogisticRegression", 1, models.TierHigh, 0.65)
	r.RecordDegraded("LogisticRegression")
	r.RecordCalibrationFallback("threshold")
	r.RecordCalibrationFallback("threshold")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.predictions.WithLabelValues("LogisticRegression", "1", "High")))
	assert.Equal(t, 0.65, testutil.ToFloat64(r.lastRiskScore.WithLabelValues("LogisticRegression")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.degraded.WithLabelValues("LogisticRegression")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("threshold")))
}
