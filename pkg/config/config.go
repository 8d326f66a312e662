package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Logger struct {
		Level       string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format      string        `yaml:"format" default:"console" validate:"oneof=json console"`
		Output      string        `yaml:"output" default:"stdout"`
		Diagnostics bool          `yaml:"diagnostics" default:"false"`
		Flush       time.Duration `yaml:"flush_interval" default:"30s"`
	} `yaml:"logger"`

	Model struct {
		// Backend is "local" (logistic artifact on disk) or "http" (remote model service).
		Backend    string        `yaml:"backend" default:"local" validate:"oneof=local http"`
		Name       string        `yaml:"name" default:"LogisticRegression" validate:"required"`
		Path       string        `yaml:"path" default:"models/logistic.json"`
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"3s"`
		Retries    int           `yaml:"retries" default:"2" validate:"gte=0,lte=10"`
	} `yaml:"model"`

	Scoring struct {
		DefaultThreshold float64 `yaml:"default_threshold" default:"0.5" validate:"gte=0,lte=1"`
	} `yaml:"scoring"`

	Calibration struct {
		Source   string        `yaml:"source" default:"file" validate:"oneof=file redis"`
		Path     string        `yaml:"path" default:"models/calibration.json"`
		RedisKey string        `yaml:"redis_key" default:"calibration"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"0s"`
	} `yaml:"calibration"`

	Report struct {
		// HighRiskCut is the fixed probability cut used by portfolio reports.
		// It is independent of the calibrated decision threshold.
		HighRiskCut float64       `yaml:"high_risk_cut" default:"0.6" validate:"gte=0,lte=1"`
		MaxRows     int           `yaml:"max_rows" default:"100000" validate:"gte=1"`
		CacheTTL    time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"report"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" default:"false"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
		Prefix   string `yaml:"prefix" default:"creditrisk"`
	} `yaml:"redis"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" default:"false"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"credit_risk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled          bool     `yaml:"enabled" default:"false"`
		Brokers          []string `yaml:"brokers"`
		ResultsTopic     string   `yaml:"results_topic" default:"credit.predictions"`
		RequestsTopic    string   `yaml:"requests_topic" default:"credit.scoring.requests"`
		DiagnosticsTopic string   `yaml:"diagnostics_topic" default:"credit.diagnostics"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"credit-risk-scorer"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"credit.scoring.requests.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"10" validate:"gt=0"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CREDITRISK_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("CREDITRISK_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := getenv("CREDITRISK_MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := getenv("CREDITRISK_CALIBRATION_PATH"); v != "" {
		c.Calibration.Path = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			c.Redis.Host = v
		} else {
			c.Redis.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Model.Backend == "http" && c.Model.ServiceURL == "" {
		return fmt.Errorf("model.service_url is required when model.backend is 'http'")
	}
	if c.Model.Backend == "local" && c.Model.Path == "" {
		return fmt.Errorf("model.path is required when model.backend is 'local'")
	}
	if c.Calibration.Source == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("calibration.source 'redis' requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
