package analytics

import (
	"context"
	"fmt"
	"time"

	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/pkg/config"
)

// LocalLoader builds LogisticModels from artifact files. An empty path
// reloads the configured artifact.
type LocalLoader struct {
	path string
}

func (l LocalLoader) Load(_ context.Context, path string) (domsvc.ScoringModel, error) {
	if path == "" {
		path = l.path
	}
	return LoadLogisticModel(path)
}

// HTTPLoader builds remote models. The path is a service URL; empty keeps
// the configured one.
type HTTPLoader struct {
	name       string
	serviceURL string
	timeout    time.Duration
	retries    int
}

func (l HTTPLoader) Load(_ context.Context, path string) (domsvc.ScoringModel, error) {
	url := l.serviceURL
	if path != "" {
		url = path
	}
	if url == "" {
		return nil, errNoServiceURL
	}
	return NewHTTPScoringModel(l.name, NewHTTPServiceBase(url, l.timeout, l.retries)), nil
}

// NewModelLoader picks the backend named by model.backend.
func NewModelLoader(cfg *config.Config) (domsvc.ModelLoader, error) {
	switch cfg.Model.Backend {
	case "local":
		return LocalLoader{path: cfg.Model.Path}, nil
	case "http":
		return HTTPLoader{
			name:       cfg.Model.Name,
			serviceURL: cfg.Model.ServiceURL,
			timeout:    cfg.Model.Timeout,
			retries:    cfg.Model.Retries,
		}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

// LoadConfiguredModel loads the model the configuration points at.
func LoadConfiguredModel(ctx context.Context, cfg *config.Config, loader domsvc.ModelLoader) (domsvc.ScoringModel, error) {
	path := cfg.Model.Path
	if cfg.Model.Backend == "http" {
		path = cfg.Model.ServiceURL
	}
	m, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s model: %w", cfg.Model.Backend, err)
	}
	return m, nil
}
