package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
)

// BufferedStore sits in front of a PredictionStore. Writes go straight
// through; a failed batch is parked in a bounded buffer and retried in the
// background with capped exponential backoff. When the buffer is full the
// batch is dropped and counted.
type BufferedStore struct {
	domrepo.PredictionStore

	metrics    domrepo.Metrics
	bufCh      chan []*models.PredictionResult
	stopCh     chan struct{}
	done       chan struct{}
	backoffMin time.Duration
	backoffMax time.Duration

	mu      sync.Mutex
	started bool
}

type BufferOption func(*BufferedStore)

// WithBufferSize sets how many failed batches may wait for a retry.
func WithBufferSize(n int) BufferOption {
	return func(b *BufferedStore) {
		if n > 0 {
			b.bufCh = make(chan []*models.PredictionResult, n)
		}
	}
}

func WithRetryBackoff(min, max time.Duration) BufferOption {
	return func(b *BufferedStore) {
		if min > 0 && max >= min {
			b.backoffMin, b.backoffMax = min, max
		}
	}
}

func NewBufferedStore(store domrepo.PredictionStore, metrics domrepo.Metrics, opts ...BufferOption) *BufferedStore {
	b := &BufferedStore{
		PredictionStore: store,
		metrics:         metrics,
		bufCh:           make(chan []*models.PredictionResult, 256),
		backoffMin:      50 * time.Millisecond,
		backoffMax:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the retry loop. It may be called again after Stop.
func (b *BufferedStore) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	b.stopCh, b.done, b.started = stop, done, true
	b.mu.Unlock()

	go func() {
		defer close(done)
		backoff := b.backoffMin
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case rs := <-b.bufCh:
				if err := b.PredictionStore.SaveBatch(ctx, rs); err != nil {
					b.metrics.RecordError("store_retry")
					b.park(rs)
					if backoff < b.backoffMax {
						backoff *= 2
						if backoff > b.backoffMax {
							backoff = b.backoffMax
						}
					}
					select {
					case <-time.After(backoff):
					case <-stop:
						return
					case <-ctx.Done():
						return
					}
					continue
				}
				backoff = b.backoffMin
			}
		}
	}()
}

// Stop ends the retry loop. Parked batches stay buffered for the next Start.
func (b *BufferedStore) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	stop, done := b.stopCh, b.done
	b.started = false
	b.mu.Unlock()
	close(stop)
	<-done
}

func (b *BufferedStore) Save(ctx context.Context, r *models.PredictionResult) error {
	return b.SaveBatch(ctx, []*models.PredictionResult{r})
}

// SaveBatch returns the downstream error even when the batch was parked.
func (b *BufferedStore) SaveBatch(ctx context.Context, rs []*models.PredictionResult) error {
	if len(rs) == 0 {
		return nil
	}
	start := time.Now()
	if err := b.PredictionStore.SaveBatch(ctx, rs); err != nil {
		b.metrics.RecordError("store_write")
		b.park(rs)
		return fmt.Errorf("store downstream: %w", err)
	}
	b.metrics.RecordLatency("store_write", time.Since(start).Seconds())
	return nil
}

// Pending reports how many batches wait for a retry.
func (b *BufferedStore) Pending() int {
	return len(b.bufCh)
}

func (b *BufferedStore) park(rs []*models.PredictionResult) {
	select {
	case b.bufCh <- rs:
	default:
		b.metrics.RecordError("store_buffer_full")
	}
}

var _ domrepo.PredictionStore = (*BufferedStore)(nil)
