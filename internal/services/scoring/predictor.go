package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/internal/services/features"
	"CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"
	"CreditRisk/pkg/util"

	"github.com/google/uuid"
)

var (
	ErrNoModel   = errors.New("no scoring model loaded")
	ErrNoLoader  = errors.New("no model loader configured")
	ErrBadOutput = errors.New("model returned an invalid probability")
)

type PredictorOption func(*Predictor)

// Predictor runs the scoring pipeline: normalize, infer, resolve
// calibration, blend, classify. Model calls are serialized because model
// implementations are not assumed to be safe for concurrent use.
type Predictor struct {
	mu     sync.Mutex
	model  domsvc.ScoringModel
	loader domsvc.ModelLoader

	calibration CalibrationProvider
	log         *logger.Logger
	metrics     repository.Metrics
	now         func() time.Time
	newID       func() string
}

func NewPredictor(model domsvc.ScoringModel, calibration CalibrationProvider, opts ...PredictorOption) (*Predictor, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if calibration == nil {
		calibration = NewThresholdStore(nil)
	}
	p := &Predictor{
		model:       model,
		calibration: calibration,
		log:         logger.Nop(),
		metrics:     metrics.Nop{},
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func WithModelLoader(l domsvc.ModelLoader) PredictorOption {
	return func(p *Predictor) { p.loader = l }
}

func WithPredictorLogger(l *logger.Logger) PredictorOption {
	return func(p *Predictor) {
		if l != nil {
			p.log = l
		}
	}
}

func WithPredictorMetrics(m repository.Metrics) PredictorOption {
	return func(p *Predictor) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock fixes the timestamp source, mostly for tests.
func WithClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) { p.now = now }
}

func WithIDGenerator(f func() string) PredictorOption {
	return func(p *Predictor) { p.newID = f }
}

func (p *Predictor) ModelName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Name()
}

// Predict scores one request. Only a malformed feature map is returned as an
// error (a *features.MissingFeatureError or *features.InvalidFeatureError),
// and the model is not called in that case. Model failures produce a
// degraded result instead.
func (p *Predictor) Predict(ctx context.Context, req models.ScoreRequest) (*models.PredictionResult, error) {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("predict", time.Since(start).Seconds()) }()

	v, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	name, prob, err := p.infer(ctx, v)
	return p.assemble(ctx, req, v, name, prob, err), nil
}

// PredictBatch normalizes every request before calling the model once for
// the whole batch. A normalization failure aborts the batch and names the
// offending index.
func (p *Predictor) PredictBatch(ctx context.Context, reqs []models.ScoreRequest) ([]*models.PredictionResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { p.metrics.RecordLatency("predict_batch", time.Since(start).Seconds()) }()

	vs := make([]models.FeatureVector, len(reqs))
	for i, req := range reqs {
		v, err := p.normalize(req)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		vs[i] = v
	}

	name, probs, batchErr := p.inferBatch(ctx, vs)
	out := make([]*models.PredictionResult, len(reqs))
	for i := range reqs {
		if batchErr != nil {
			out[i] = p.assemble(ctx, reqs[i], vs[i], name, 0, batchErr)
			continue
		}
		out[i] = p.assemble(ctx, reqs[i], vs[i], name, probs[i], checkProbability(probs[i]))
	}
	return out, nil
}

// Reload swaps the model for one built from path. The old model stays in
// place if loading fails.
func (p *Predictor) Reload(ctx context.Context, path string) error {
	if p.loader == nil {
		return ErrNoLoader
	}
	m, err := p.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("reload model from %s: %w", path, err)
	}
	if m == nil {
		return ErrNoModel
	}

	p.mu.Lock()
	old := p.model.Name()
	p.model = m
	p.mu.Unlock()

	p.log.Info("scoring model reloaded",
		logger.String("path", path),
		logger.String("previous", old),
		logger.String("model", m.Name()),
	)
	return nil
}

func (p *Predictor) normalize(req models.ScoreRequest) (models.FeatureVector, error) {
	v, err := features.Normalize(req.Features)
	if err != nil {
		p.metrics.RecordError("normalize")
		return v, err
	}
	if extra := features.UnknownKeys(req.Features); len(extra) > 0 {
		p.log.Debug("ignoring unknown features", logger.Strings("keys", extra), logger.String("request_id", req.RequestID))
	}
	if bad := features.DomainViolations(v); len(bad) > 0 {
		p.log.Debug("feature codes outside documented domain", logger.Strings("values", bad), logger.String("request_id", req.RequestID))
	}
	return v, nil
}

func (p *Predictor) infer(ctx context.Context, v models.FeatureVector) (name string, prob float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name = p.model.Name()

	defer func() {
		if r := recover(); r != nil {
			prob, err = 0, fmt.Errorf("model panic: %v", r)
		}
	}()
	prob, err = p.model.Infer(ctx, v)
	if err != nil {
		return name, 0, err
	}
	return name, prob, checkProbability(prob)
}

func (p *Predictor) inferBatch(ctx context.Context, vs []models.FeatureVector) (name string, probs []float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name = p.model.Name()

	defer func() {
		if r := recover(); r != nil {
			probs, err = nil, fmt.Errorf("model panic: %v", r)
		}
	}()
	probs, err = p.model.InferBatch(ctx, vs)
	if err != nil {
		return name, nil, err
	}
	if len(probs) != len(vs) {
		return name, nil, fmt.Errorf("%w: %d probabilities for %d vectors", ErrBadOutput, len(probs), len(vs))
	}
	return name, probs, nil
}

func checkProbability(p float64) error {
	if !util.IsFinite(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrBadOutput, p)
	}
	return nil
}

func (p *Predictor) assemble(ctx context.Context, req models.ScoreRequest, v models.FeatureVector, model string, prob float64, inferErr error) *models.PredictionResult {
	res := &models.PredictionResult{
		ID:         p.newID(),
		RequestID:  req.RequestID,
		CustomerID: req.CustomerID,
		ModelName:  model,
		RawInput:   v,
		Threshold:  p.calibration.Threshold(ctx, model),
		Overlay:    p.calibration.Overlay(ctx),
		CreatedAt:  p.now(),
	}

	if inferErr != nil {
		res.Degraded = true
		res.Error = inferErr.Error()
		res.Tier = TierFor(0)
		p.metrics.RecordDegraded(model)
		p.log.Error("model inference failed, returning degraded result",
			logger.String("model", model),
			logger.String("request_id", req.RequestID),
			logger.Error(inferErr),
		)
		return res
	}

	res.Probability = prob
	res.RiskScore = Blend(prob, v, res.Overlay)
	res.Label = Classify(res.RiskScore, res.Threshold)
	res.Tier = TierFor(prob)
	p.metrics.RecordPrediction(model, res.Label, res.Tier, res.RiskScore)
	return res
}
