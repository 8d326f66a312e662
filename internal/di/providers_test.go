package di

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/cache"
	"CreditRisk/pkg/config"
	applogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := config.Default()

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	rc, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	consumer, err := ProvideKafkaConsumer(cfg, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, consumer)

	buffered, err := ProvideBufferedStore(cfg, nil, applogger.Nop(), metrics.Nop{})
	require.NoError(t, err)
	assert.Nil(t, buffered)

	// a disabled store must be a nil interface, not a typed nil
	assert.True(t, ProvidePredictionStore(buffered) == nil)
	assert.True(t, ProvidePredictionPublisher(cfg, nil) == nil)
}

func TestProvideCalibrationSourceRedisWithoutClient(t *testing.T) {
	cfg := config.Default()
	cfg.Calibration.Source = "redis"
	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()

	_, err := ProvideCalibrationSource(cfg, nil, mem)
	assert.Error(t, err)
}

func TestProvidePredictorWithLocalModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "logistic.json")
	b, err := json.Marshal(map[string]interface{}{
		"intercept":    0,
		"coefficients": make([]float64, models.FeatureCount),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(modelPath, b, 0o600))

	calPath := filepath.Join(dir, "calibration.json")
	require.NoError(t, os.WriteFile(calPath, []byte(`{"thresholds":{"LogisticRegression":0.3}}`), 0o600))

	cfg := config.Default()
	cfg.Model.Path = modelPath
	cfg.Calibration.Path = calPath

	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()
	src, err := ProvideCalibrationSource(cfg, nil, mem)
	require.NoError(t, err)

	ts := ProvideThresholdStore(cfg, src, applogger.Nop(), metrics.Nop{})
	loader, err := ProvideModelLoader(cfg)
	require.NoError(t, err)

	p, err := ProvidePredictor(cfg, loader, ts, applogger.Nop(), metrics.Nop{})
	require.NoError(t, err)
	assert.Equal(t, "LogisticRegression", p.ModelName())
	assert.Equal(t, 0.3, ts.Threshold(context.Background(), p.ModelName()))
}

func TestProvidePredictorMissingModelFails(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.json")
	loader, err := ProvideModelLoader(cfg)
	require.NoError(t, err)

	_, err = ProvidePredictor(cfg, loader, nil, applogger.Nop(), metrics.Nop{})
	assert.Error(t, err)
}
