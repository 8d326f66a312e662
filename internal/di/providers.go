package di

import (
	"context"
	"fmt"
	"time"

	"CreditRisk/internal/domain/repository"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/internal/handler/api"
	mid "CreditRisk/internal/middleware"
	internalrepo "CreditRisk/internal/repository"
	"CreditRisk/internal/service/ratelimit"
	"CreditRisk/internal/services/analytics"
	"CreditRisk/internal/services/scoring"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/cache"
	pkgch "CreditRisk/pkg/clickhouse"
	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"
	pkgkafka "CreditRisk/pkg/kafka"
	applogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"
	"CreditRisk/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger. With diagnostics enabled and
// Kafka available, warn and error events are also folded into the
// diagnostics topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logger.Diagnostics && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Logger.Flush,
			Topic:        cfg.Kafka.DiagnosticsTopic,
			Publisher:    producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	c, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideMemoryCache creates the process-local cache used for calibration
// snapshots and, without Redis, for report responses.
func ProvideMemoryCache() *cache.MemoryCache {
	return cache.NewMemoryCache()
}

// ProvideCalibrationSource picks the artifact backend and wraps it in the
// snapshot cache. A zero calibration.cache_ttl re-reads on every call.
func ProvideCalibrationSource(cfg *config.Config, rc *cache.RedisCache, mem *cache.MemoryCache) (repository.CalibrationSource, error) {
	var src repository.CalibrationSource
	switch cfg.Calibration.Source {
	case "file":
		src = internalrepo.NewFileCalibrationSource(cfg.Calibration.Path)
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("calibration source redis: redis is disabled")
		}
		src = internalrepo.NewRedisCalibrationSource(rc, cfg.Calibration.RedisKey)
	default:
		return nil, fmt.Errorf("unknown calibration source %q", cfg.Calibration.Source)
	}
	return internalrepo.NewCachedCalibrationSource(src, mem, cfg.Calibration.CacheTTL), nil
}

func ProvideThresholdStore(cfg *config.Config, src repository.CalibrationSource, l *applogger.Logger, m repository.Metrics) *scoring.ThresholdStore {
	return scoring.NewThresholdStore(src,
		scoring.WithDefaultThreshold(cfg.Scoring.DefaultThreshold),
		scoring.WithThresholdLogger(l),
		scoring.WithThresholdMetrics(m),
	)
}

func ProvideModelLoader(cfg *config.Config) (domsvc.ModelLoader, error) {
	return analytics.NewModelLoader(cfg)
}

// ProvidePredictor loads the configured model. A model that cannot be
// loaded stops startup.
func ProvidePredictor(
	cfg *config.Config,
	loader domsvc.ModelLoader,
	thresholds *scoring.ThresholdStore,
	l *applogger.Logger,
	m repository.Metrics,
) (*scoring.Predictor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	model, err := analytics.LoadConfiguredModel(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}
	l.Info("model loaded",
		applogger.String("model", model.Name()),
		applogger.String("backend", cfg.Model.Backend),
	)
	return scoring.NewPredictor(model, thresholds,
		scoring.WithModelLoader(loader),
		scoring.WithPredictorLogger(l),
		scoring.WithPredictorMetrics(m),
	)
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when
// prediction history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBufferedStore creates the predictions table and wraps the
// ClickHouse store with the retry buffer. Nil without ClickHouse.
func ProvideBufferedStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger, m repository.Metrics) (*mid.BufferedStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHPredictionStore(ch, cfg.Report.MaxRows)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return mid.NewBufferedStore(store, m), nil
}

// ProvidePredictionStore exposes the buffered store as the domain interface,
// keeping a disabled store a true nil interface.
func ProvidePredictionStore(b *mid.BufferedStore) repository.PredictionStore {
	if b == nil {
		return nil
	}
	return b
}

func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.PredictionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.ResultsTopic)
}

func ProvideLiveFeed(l *applogger.Logger) *api.LiveFeed {
	return api.NewLiveFeed(l, api.DefaultLiveFeedConfig())
}

func ProvideScoringService(
	predictor *scoring.Predictor,
	store repository.PredictionStore,
	pub repository.PredictionPublisher,
	feed *api.LiveFeed,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ScoringService {
	opts := []usecase.ScoringServiceOption{usecase.WithFeed(feed)}
	if store != nil {
		opts = append(opts, usecase.WithStore(store))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewScoringService(predictor, m, l, opts...)
}

func ProvideReporter(cfg *config.Config, store repository.PredictionStore) *usecase.Reporter {
	return usecase.NewReporter(store, cfg.Report.HighRiskCut, cfg.Report.MaxRows)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideKafkaConsumer creates the scoring request consumer, or nil when
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideScoreRequestHandler(cfg *config.Config, svc *usecase.ScoringService, m repository.Metrics) *usecase.ScoreRequestHandler {
	return usecase.NewScoreRequestHandler(cfg.Kafka.RequestsTopic, svc, m)
}

func ProvideScoringHandler(
	l *applogger.Logger,
	svc *usecase.ScoringService,
	thresholds *scoring.ThresholdStore,
	predictor *scoring.Predictor,
	rl *ratelimit.Limiter,
) *api.ScoringEchoHandler {
	return api.NewScoringEchoHandler(l, svc, thresholds, predictor, rl)
}

// ProvideReportHandler caches report responses in Redis when it is enabled
// and in process memory otherwise.
func ProvideReportHandler(
	cfg *config.Config,
	l *applogger.Logger,
	reporter *usecase.Reporter,
	rc *cache.RedisCache,
	mem *cache.MemoryCache,
) *api.ReportEchoHandler {
	h := api.NewReportEchoHandler(l, reporter)
	var c cache.Service = mem
	if rc != nil {
		c = rc
	}
	h.SetCache(c, cfg.Report.CacheTTL)
	return h
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	scoringHandler *api.ScoringEchoHandler,
	reportHandler *api.ReportEchoHandler,
	feed *api.LiveFeed,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l,
		[]xhttp.Handler{scoringHandler, reportHandler, feed},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the lifecycle. Closers run in reverse order, so the
// producer outlives everything that may still publish through it.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.ScoreRequestHandler,
	buffered *mid.BufferedStore,
	rl *ratelimit.Limiter,
	producer *pkgkafka.Producer,
	rc *cache.RedisCache,
	mem *cache.MemoryCache,
	ch *pkgch.Client,
	feed *api.LiveFeed,
) *server.App {
	opts := []server.Option{server.WithSweeper(rl)}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer.Close))
		if cfg.Logger.Diagnostics {
			opts = append(opts, server.WithCloser("log collector", func() error {
				l.RemoveCollector()
				return nil
			}))
		}
	}
	if rc != nil {
		opts = append(opts, server.WithCloser("redis", rc.Close))
	}
	opts = append(opts, server.WithCloser("memory cache", mem.Close))
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	if buffered != nil {
		opts = append(opts, server.WithRunner(buffered))
	}
	opts = append(opts, server.WithCloser("live feed", func() error {
		feed.Close()
		return nil
	}))
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	return server.New(cfg, l, srv, opts...)
}
