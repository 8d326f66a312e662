package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
)

var ErrNoHistory = errors.New("prediction history is not configured")

// Reporter answers history and portfolio questions from stored predictions.
type Reporter struct {
	store   domrepo.PredictionStore
	cut     float64
	maxRows int
}

func NewReporter(store domrepo.PredictionStore, highRiskCut float64, maxRows int) *Reporter {
	return &Reporter{store: store, cut: highRiskCut, maxRows: maxRows}
}

func (r *Reporter) History(ctx context.Context, f models.HistoryFilter) ([]*models.PredictionResult, error) {
	if r.store == nil {
		return nil, ErrNoHistory
	}
	if f.Limit <= 0 || f.Limit > r.maxRows {
		f.Limit = r.maxRows
	}
	rs, err := r.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return rs, nil
}

// Summary aggregates every prediction created in [from, to]. The store
// computes it, so report.max_rows does not cap the window.
func (r *Reporter) Summary(ctx context.Context, from, to time.Time) (*models.PortfolioSummary, error) {
	if r.store == nil {
		return nil, ErrNoHistory
	}
	s, err := r.store.Summary(ctx, from, to, r.cut)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	s.From, s.To = from, to
	return s, nil
}
