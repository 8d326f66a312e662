package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/cache"
)

var ErrCalibrationLocked = errors.New("calibration is being written by another process")

const calibrationLockTTL = 5 * time.Second

// RedisCalibrationSource keeps the artifact as JSON under one key so every
// replica reads the same calibration.
type RedisCalibrationSource struct {
	cache cache.Service
	key   string
}

func NewRedisCalibrationSource(c cache.Service, key string) *RedisCalibrationSource {
	return &RedisCalibrationSource{cache: c, key: key}
}

func (s *RedisCalibrationSource) Load(ctx context.Context) (*models.Calibration, error) {
	var c models.Calibration
	if err := s.cache.Get(ctx, s.key, &c); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: redis key %s", domrepo.ErrCalibrationNotFound, s.key)
		}
		return nil, fmt.Errorf("redis calibration: %w", err)
	}
	return &c, nil
}

func (s *RedisCalibrationSource) Save(ctx context.Context, c *models.Calibration) error {
	lock := cache.Key(s.key, "lock")
	ok, err := s.cache.TryLock(ctx, lock, calibrationLockTTL)
	if err != nil {
		return fmt.Errorf("lock calibration: %w", err)
	}
	if !ok {
		return ErrCalibrationLocked
	}
	defer func() { _ = s.cache.Unlock(ctx, lock) }()

	if err := s.cache.Set(ctx, s.key, c, 0); err != nil {
		return fmt.Errorf("store calibration: %w", err)
	}
	return nil
}

var (
	_ domrepo.CalibrationSource = (*RedisCalibrationSource)(nil)
	_ domrepo.CalibrationWriter = (*RedisCalibrationSource)(nil)
)
