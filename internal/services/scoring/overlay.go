package scoring

import (
	"errors"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/util"
)

var errNonFiniteSignal = errors.New("overlay signal is not finite")

// Blend returns the risk score for probability p. With the overlay disabled
// it is p unchanged; otherwise alpha*p + beta*x clamped to [0,1], where x is
// the configured feature scaled into [0,1].
func Blend(p float64, v models.FeatureVector, cfg models.OverlayConfig) float64 {
	if !cfg.Enabled {
		return p
	}
	x, err := signal(v, cfg.Feature)
	if err != nil {
		x = 0
	}
	return util.Clamp01(cfg.Alpha*p + cfg.Beta*x)
}

func signal(v models.FeatureVector, feature models.OverlayFeature) (float64, error) {
	var x float64
	switch feature {
	case models.OverlayAge:
		age, _ := v.Get(models.FeatureAge)
		x = age / 100.0
	case models.OverlayLimitBal:
		limit, _ := v.Get(models.FeatureLimitBal)
		x = limit / 1_000_000.0
	case models.OverlayPay0:
		pay0, _ := v.Get(models.FeaturePay0)
		x = (pay0 + 2.0) / 11.0
	default:
		return 0, nil
	}
	if !util.IsFinite(x) {
		return 0, errNonFiniteSignal
	}
	return util.Clamp01(x), nil
}
