package repository

import (
	"context"
	"errors"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/cache"
)

const snapshotKey = "calibration:snapshot"

// CachedCalibrationSource holds a snapshot of another source for ttl.
// A ttl of zero passes every Load through. Failed loads are not cached.
type CachedCalibrationSource struct {
	src   domrepo.CalibrationSource
	cache cache.Service
	ttl   time.Duration
}

func NewCachedCalibrationSource(src domrepo.CalibrationSource, c cache.Service, ttl time.Duration) *CachedCalibrationSource {
	return &CachedCalibrationSource{src: src, cache: c, ttl: ttl}
}

func (s *CachedCalibrationSource) Load(ctx context.Context) (*models.Calibration, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.src.Load(ctx)
	}
	var snap models.Calibration
	err := s.cache.Get(ctx, snapshotKey, &snap)
	if err == nil {
		return &snap, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return s.src.Load(ctx)
	}

	c, err := s.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil {
		_ = s.cache.Set(ctx, snapshotKey, *c, s.ttl)
	}
	return c, nil
}

// Refresh drops the snapshot.
func (s *CachedCalibrationSource) Refresh(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, snapshotKey)
	}
}

// Save writes through when the wrapped source is writable.
func (s *CachedCalibrationSource) Save(ctx context.Context, c *models.Calibration) error {
	w, ok := s.src.(domrepo.CalibrationWriter)
	if !ok {
		return errors.New("calibration source is read-only")
	}
	if err := w.Save(ctx, c); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

var (
	_ domrepo.CalibrationSource = (*CachedCalibrationSource)(nil)
	_ domrepo.Refresher         = (*CachedCalibrationSource)(nil)
)
