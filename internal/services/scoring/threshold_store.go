package scoring

import (
	"context"
	"errors"
	"fmt"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"
	"CreditRisk/pkg/util"
)

// DefaultThreshold applies when no usable calibrated threshold exists.
const DefaultThreshold = 0.5

var (
	ErrModelNotCalibrated = errors.New("model has no calibrated threshold")
	ErrThresholdRange     = errors.New("calibrated threshold outside [0,1]")
	ErrNoOverlay          = errors.New("calibration has no overlay record")
	ErrOverlayWeights     = errors.New("overlay weights are not finite")
)

// CalibrationProvider is what the predictor needs from calibration. Both
// methods always answer; failures resolve to defaults.
type CalibrationProvider interface {
	Threshold(ctx context.Context, model string) float64
	Overlay(ctx context.Context) models.OverlayConfig
}

// CalibrationStatus describes the calibration in effect for one model.
type CalibrationStatus struct {
	Model            string               `json:"model"`
	Threshold        float64              `json:"threshold"`
	ThresholdDefault bool                 `json:"threshold_default"`
	ThresholdReason  string               `json:"threshold_reason,omitempty"`
	Overlay          models.OverlayConfig `json:"overlay"`
	OverlayDefault   bool                 `json:"overlay_default"`
	OverlayReason    string               `json:"overlay_reason,omitempty"`
}

type ThresholdOption func(*ThresholdStore)

// ThresholdStore resolves per-model thresholds and the overlay from a
// CalibrationSource, reading it on every call.
type ThresholdStore struct {
	source           repository.CalibrationSource
	defaultThreshold float64
	log              *logger.Logger
	metrics          repository.Metrics
}

func NewThresholdStore(source repository.CalibrationSource, opts ...ThresholdOption) *ThresholdStore {
	s := &ThresholdStore{
		source:           source,
		defaultThreshold: DefaultThreshold,
		log:              logger.Nop(),
		metrics:          metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithDefaultThreshold overrides the fallback threshold; values outside [0,1] are ignored.
func WithDefaultThreshold(t float64) ThresholdOption {
	return func(s *ThresholdStore) {
		if util.IsFinite(t) && t >= 0 && t <= 1 {
			s.defaultThreshold = t
		}
	}
}

func WithThresholdLogger(l *logger.Logger) ThresholdOption {
	return func(s *ThresholdStore) {
		if l != nil {
			s.log = l
		}
	}
}

func WithThresholdMetrics(m repository.Metrics) ThresholdOption {
	return func(s *ThresholdStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Threshold never fails: any error resolving model's threshold yields the default.
func (s *ThresholdStore) Threshold(ctx context.Context, model string) float64 {
	t, err := s.threshold(ctx, model)
	if err != nil {
		s.fallback("threshold", model, err)
		return s.defaultThreshold
	}
	return t
}

// Overlay never fails: any error yields models.DefaultOverlay().
func (s *ThresholdStore) Overlay(ctx context.Context) models.OverlayConfig {
	o, err := s.overlay(ctx)
	if err != nil {
		s.fallback("overlay", "", err)
		return models.DefaultOverlay()
	}
	return o
}

// Describe reports the values in effect and why defaults were used, if they were.
func (s *ThresholdStore) Describe(ctx context.Context, model string) CalibrationStatus {
	st := CalibrationStatus{Model: model}
	if t, err := s.threshold(ctx, model); err != nil {
		st.Threshold, st.ThresholdDefault, st.ThresholdReason = s.defaultThreshold, true, err.Error()
	} else {
		st.Threshold = t
	}
	if o, err := s.overlay(ctx); err != nil {
		st.Overlay, st.OverlayDefault, st.OverlayReason = models.DefaultOverlay(), true, err.Error()
	} else {
		st.Overlay = o
	}
	return st
}

// Refresh drops any snapshot held by the source so the next call re-reads it.
func (s *ThresholdStore) Refresh(ctx context.Context) {
	if r, ok := s.source.(repository.Refresher); ok {
		r.Refresh(ctx)
	}
}

func (s *ThresholdStore) DefaultThreshold() float64 {
	return s.defaultThreshold
}

func (s *ThresholdStore) threshold(ctx context.Context, model string) (float64, error) {
	cal, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	t, ok := cal.Thresholds[model]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrModelNotCalibrated, model)
	}
	if !util.IsFinite(t) || t < 0 || t > 1 {
		return 0, fmt.Errorf("%w: %s=%v", ErrThresholdRange, model, t)
	}
	return t, nil
}

func (s *ThresholdStore) overlay(ctx context.Context) (models.OverlayConfig, error) {
	cal, err := s.load(ctx)
	if err != nil {
		return models.OverlayConfig{}, err
	}
	if cal.Overlay == nil {
		return models.OverlayConfig{}, ErrNoOverlay
	}
	o := *cal.Overlay
	if !util.IsFinite(o.Alpha) || !util.IsFinite(o.Beta) {
		return models.OverlayConfig{}, ErrOverlayWeights
	}
	if o.Feature == "" {
		o.Feature = models.OverlayNone
	}
	return o, nil
}

func (s *ThresholdStore) load(ctx context.Context) (cal *models.Calibration, err error) {
	if s.source == nil {
		return nil, repository.ErrCalibrationNotFound
	}
	defer func() {
		if r := recover(); r != nil {
			cal, err = nil, fmt.Errorf("calibration source panic: %v", r)
		}
	}()
	cal, err = s.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, repository.ErrCalibrationNotFound
	}
	return cal, nil
}

func (s *ThresholdStore) fallback(kind, model string, err error) {
	s.metrics.RecordCalibrationFallback(kind)
	fields := []logger.Field{logger.String("kind", kind), logger.Error(err)}
	if model != "" {
		fields = append(fields, logger.String("model", model))
	}
	// an absent artifact is the normal uncalibrated state
	if errors.Is(err, repository.ErrCalibrationNotFound) {
		s.log.Debug("calibration not found, using defaults", fields...)
		return
	}
	s.log.Warn("calibration unusable, using defaults", fields...)
}
