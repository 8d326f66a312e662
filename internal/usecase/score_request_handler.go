package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	"CreditRisk/internal/services/features"
	pkgkafka "CreditRisk/pkg/kafka"
)

// ScoreRequestHandler consumes scoring requests from Kafka. Undecodable or
// incomplete requests are permanent failures and go straight to the DLQ.
type ScoreRequestHandler struct {
	topic   string
	svc     *ScoringService
	metrics domrepo.Metrics
}

func NewScoreRequestHandler(topic string, svc *ScoringService, metrics domrepo.Metrics) *ScoreRequestHandler {
	return &ScoreRequestHandler{topic: topic, svc: svc, metrics: metrics}
}

func (h *ScoreRequestHandler) Topic() string { return h.topic }

// incoming message schema: {request_id, customer_id, features}
func (h *ScoreRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ScoreRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return &pkgkafka.PermanentError{Err: fmt.Errorf("decode score request: %w", err)}
	}
	if _, err := h.svc.Score(ctx, req); err != nil {
		var missing *features.MissingFeatureError
		var invalid *features.InvalidFeatureError
		if errors.As(err, &missing) || errors.As(err, &invalid) {
			return &pkgkafka.PermanentError{Err: err}
		}
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*ScoreRequestHandler)(nil)
