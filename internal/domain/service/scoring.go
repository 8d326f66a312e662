package service

import (
	"context"

	"CreditRisk/internal/domain/models"
)

// ScoringModel is a loaded classifier. Infer must be deterministic: the same
// vector always yields the same probability of default in [0,1].
type ScoringModel interface {
	Name() string
	Infer(ctx context.Context, v models.FeatureVector) (float64, error)
	InferBatch(ctx context.Context, vs []models.FeatureVector) ([]float64, error)
}

// ModelLoader builds a ScoringModel from an artifact location.
type ModelLoader interface {
	Load(ctx context.Context, path string) (ScoringModel, error)
}
