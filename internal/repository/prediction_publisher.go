package repository

import (
	"context"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	pkgkafka "CreditRisk/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPredictionPublisher sends results to the results topic keyed by
// customer, so one customer's results stay on one partition.
type KafkaPredictionPublisher struct {
	producer batchProducer
	topic    string
}

func NewKafkaPredictionPublisher(producer batchProducer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) Publish(ctx context.Context, r *models.PredictionResult) error {
	return p.PublishBatch(ctx, []*models.PredictionResult{r})
}

func (p *KafkaPredictionPublisher) PublishBatch(ctx context.Context, rs []*models.PredictionResult) error {
	if len(rs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		key := r.CustomerID
		if key == "" {
			key = r.ID
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(key), Value: r})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPredictionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.PredictionPublisher = (*KafkaPredictionPublisher)(nil)
