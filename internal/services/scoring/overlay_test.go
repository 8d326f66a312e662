package scoring

import (
	"math"
	"testing"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vector(t *testing.T, mutate func(map[string]float64)) models.FeatureVector {
	t.Helper()
	raw := baseFeatures()
	if mutate != nil {
		mutate(raw)
	}
	v, err := features.Normalize(raw)
	require.NoError(t, err)
	return v
}

func TestBlendDisabledIsIdentity(t *testing.T) {
	v := vector(t, nil)
	cfg := models.OverlayConfig{Enabled: false, Alpha: 0.3, Beta: 5, Feature: models.OverlayAge}
	for _, p := range []float64{0, 0.123456789, 0.5, 0.999999, 1} {
		assert.Equal(t, p, Blend(p, v, cfg))
	}
}

func TestBlendAlwaysWithinUnitInterval(t *testing.T) {
	v := vector(t, nil)
	weights := []float64{-1e9, -3, -0.5, 0, 0.25, 1, 2.5, 1e9, math.Inf(1), math.Inf(-1)}
	feats := []models.OverlayFeature{models.OverlayAge, models.OverlayLimitBal, models.OverlayPay0, models.OverlayNone, "BOGUS"}

	for _, a := range weights {
		for _, b := range weights {
			for _, f := range feats {
				for _, p := range []float64{0, 0.3, 1} {
					got := Blend(p, v, models.OverlayConfig{Enabled: true, Alpha: a, Beta: b, Feature: f})
					assert.GreaterOrEqual(t, got, 0.0)
					assert.LessOrEqual(t, got, 1.0)
				}
			}
		}
	}
}

func TestBlendLimitBalScenario(t *testing.T) {
	v := vector(t, func(raw map[string]float64) { raw[models.FeatureLimitBal] = 500_000 })
	cfg := models.OverlayConfig{Enabled: true, Alpha: 0.8, Beta: 0.2, Feature: models.OverlayLimitBal}

	for _, p := range []float64{0, 0.2, 0.55, 1} {
		assert.InDelta(t, math.Min(1, 0.8*p+0.1), Blend(p, v, cfg), 1e-12)
	}
}

func TestSignals(t *testing.T) {
	v := vector(t, func(raw map[string]float64) {
		raw[models.FeatureAge] = 45
		raw[models.FeaturePay0] = 3
		raw[models.FeatureLimitBal] = 2_500_000
	})

	x, err := signal(v, models.OverlayAge)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, x, 1e-12)

	x, err = signal(v, models.OverlayPay0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/11.0, x, 1e-12)

	x, err = signal(v, models.OverlayLimitBal)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x)

	x, err = signal(v, models.OverlayNone)
	require.NoError(t, err)
	assert.Equal(t, 0.0, x)
}

func TestSignalNonFiniteTreatedAsZero(t *testing.T) {
	var v models.FeatureVector
	i, _ := models.FeatureIndex(models.FeatureAge)
	v[i] = math.Inf(1)

	_, err := signal(v, models.OverlayAge)
	assert.ErrorIs(t, err, errNonFiniteSignal)

	got := Blend(0.4, v, models.OverlayConfig{Enabled: true, Alpha: 1, Beta: 0.5, Feature: models.OverlayAge})
	assert.InDelta(t, 0.4, got, 1e-12)
}
