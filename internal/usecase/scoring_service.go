package usecase

import (
	"context"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	"CreditRisk/pkg/logger"
)

// Scorer is the prediction pipeline.
type Scorer interface {
	Predict(ctx context.Context, req models.ScoreRequest) (*models.PredictionResult, error)
	PredictBatch(ctx context.Context, reqs []models.ScoreRequest) ([]*models.PredictionResult, error)
}

// Broadcaster pushes results to live subscribers.
type Broadcaster interface {
	Broadcast(r *models.PredictionResult)
}

// ScoringService runs a prediction and then records it. Recording is best
// effort: storage, publish and broadcast failures are logged and counted but
// never change the returned result.
type ScoringService struct {
	scorer  Scorer
	store   domrepo.PredictionStore
	pub     domrepo.PredictionPublisher
	feed    Broadcaster
	metrics domrepo.Metrics
	log     *logger.Logger
	timeout time.Duration
}

type ScoringServiceOption func(*ScoringService)

// WithStore, WithPublisher and WithFeed accept nil, which disables that sink.
func WithStore(s domrepo.PredictionStore) ScoringServiceOption {
	return func(svc *ScoringService) { svc.store = s }
}

func WithPublisher(p domrepo.PredictionPublisher) ScoringServiceOption {
	return func(svc *ScoringService) { svc.pub = p }
}

func WithFeed(b Broadcaster) ScoringServiceOption {
	return func(svc *ScoringService) { svc.feed = b }
}

// WithRecordTimeout bounds the time spent on storage and publishing.
func WithRecordTimeout(d time.Duration) ScoringServiceOption {
	return func(svc *ScoringService) { svc.timeout = d }
}

func NewScoringService(scorer Scorer, metrics domrepo.Metrics, log *logger.Logger, opts ...ScoringServiceOption) *ScoringService {
	svc := &ScoringService{
		scorer:  scorer,
		metrics: metrics,
		log:     log,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Score returns the same error the pipeline returns for malformed input.
func (s *ScoringService) Score(ctx context.Context, req models.ScoreRequest) (*models.PredictionResult, error) {
	r, err := s.scorer.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, []*models.PredictionResult{r})
	return r, nil
}

func (s *ScoringService) ScoreBatch(ctx context.Context, reqs []models.ScoreRequest) ([]*models.PredictionResult, error) {
	rs, err := s.scorer.PredictBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	s.record(ctx, rs)
	return rs, nil
}

func (s *ScoringService) record(ctx context.Context, rs []*models.PredictionResult) {
	if len(rs) == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if s.store != nil {
		start := time.Now()
		if err := s.store.SaveBatch(rctx, rs); err != nil {
			s.metrics.RecordError("store")
			s.log.Warn("failed to store predictions", logger.Int("count", len(rs)), logger.Error(err))
		}
		s.metrics.RecordLatency("store", time.Since(start).Seconds())
	}
	if s.pub != nil {
		if err := s.pub.PublishBatch(rctx, rs); err != nil {
			s.metrics.RecordError("publish")
			s.log.Warn("failed to publish predictions", logger.Int("count", len(rs)), logger.Error(err))
		}
	}
	if s.feed != nil {
		for _, r := range rs {
			s.feed.Broadcast(r)
		}
	}
}
