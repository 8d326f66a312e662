package repository

import (
	"context"
	"errors"
	"time"

	"CreditRisk/internal/domain/models"
)

// ErrCalibrationNotFound means no calibration artifact exists at the source.
var ErrCalibrationNotFound = errors.New("calibration artifact not found")

// CalibrationSource loads the current calibration artifact. Implementations
// read their backing store on every call unless documented otherwise.
type CalibrationSource interface {
	Load(ctx context.Context) (*models.Calibration, error)
}

// CalibrationWriter persists a calibration artifact.
type CalibrationWriter interface {
	Save(ctx context.Context, c *models.Calibration) error
}

// Refresher is implemented by sources that hold a snapshot.
type Refresher interface {
	Refresh(ctx context.Context)
}

type PredictionStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, r *models.PredictionResult) error
	SaveBatch(ctx context.Context, rs []*models.PredictionResult) error
	Query(ctx context.Context, f models.HistoryFilter) ([]*models.PredictionResult, error)
	// Summary aggregates every prediction created in [from, to]; zero bounds
	// are open. It is not subject to the history row cap.
	Summary(ctx context.Context, from, to time.Time, highRiskCut float64) (*models.PortfolioSummary, error)
	Health(ctx context.Context) error
	Close() error
}

type PredictionPublisher interface {
	Publish(ctx context.Context, r *models.PredictionResult) error
	PublishBatch(ctx context.Context, rs []*models.PredictionResult) error
	Close() error
}

type Metrics interface {
	RecordPrediction(model string, label int, tier models.Tier, riskScore float64)
	RecordDegraded(model string)
	RecordCalibrationFallback(kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
