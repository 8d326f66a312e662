package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 0.5, c.Scoring.DefaultThreshold)
	assert.Equal(t, 0.6, c.Report.HighRiskCut)
	assert.Equal(t, "local", c.Model.Backend)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), c.Calibration.CacheTTL)
	assert.Equal(t, 30*time.Second, c.Report.CacheTTL)
	assert.NoError(t, c.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
scoring:
  default_threshold: 0.42
report:
  high_risk_cut: 0.7
calibration:
  cache_ttl: 5s
`))
	require.NoError(t, err)
	assert.Equal(t, "prod", c.Environment)
	assert.Equal(t, 0.42, c.Scoring.DefaultThreshold)
	assert.Equal(t, 0.7, c.Report.HighRiskCut)
	assert.Equal(t, 5*time.Second, c.Calibration.CacheTTL)
	// untouched sections keep defaults
	assert.Equal(t, 8080, c.Server.Port)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "scoring:\n  default_threshold: 1.5\n"},
		{"unknown backend", "model:\n  backend: onnx\n"},
		{"http backend without url", "model:\n  backend: http\n"},
		{"redis calibration without redis", "calibration:\n  source: redis\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))

	t.Setenv("CREDITRISK_CALIBRATION_PATH", "/tmp/cal.json")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cal.json", c.Calibration.Path)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
