package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	mu       sync.Mutex
	failures int
	saved    int
}

func (s *flakyStore) Init(context.Context) error { return nil }
func (s *flakyStore) Save(ctx context.Context, r *models.PredictionResult) error {
	return s.SaveBatch(ctx, []*models.PredictionResult{r})
}
func (s *flakyStore) SaveBatch(_ context.Context, rs []*models.PredictionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("clickhouse unavailable")
	}
	s.saved += len(rs)
	return nil
}
func (s *flakyStore) Query(context.Context, models.HistoryFilter) ([]*models.PredictionResult, error) {
	return nil, nil
}
func (s *flakyStore) Summary(context.Context, time.Time, time.Time, float64) (*models.PortfolioSummary, error) {
	return nil, nil
}
func (s *flakyStore) Health(context.Context) error { return nil }
func (s *flakyStore) Close() error                 { return nil }

func (s *flakyStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func TestBufferedStoreRetriesFailedBatches(t *testing.T) {
	down := &flakyStore{failures: 2}
	b := NewBufferedStore(down, metrics.Nop{}, WithRetryBackoff(time.Millisecond, 5*time.Millisecond))
	ctx := context.Background()
	b.Start(ctx)
	defer b.Stop()

	err := b.SaveBatch(ctx, []*models.PredictionResult{{ID: "a"}, {ID: "b"}})
	require.Error(t, err)

	assert.Eventually(t, func() bool { return down.savedCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.Pending())
}

func TestBufferedStoreDropsWhenFull(t *testing.T) {
	down := &flakyStore{failures: 100}
	b := NewBufferedStore(down, metrics.Nop{}, WithBufferSize(1))

	_ = b.Save(context.Background(), &models.PredictionResult{ID: "a"})
	_ = b.Save(context.Background(), &models.PredictionResult{ID: "b"})
	assert.Equal(t, 1, b.Pending())
}

func TestBufferedStorePassThrough(t *testing.T) {
	down := &flakyStore{}
	b := NewBufferedStore(down, metrics.Nop{})

	require.NoError(t, b.Save(context.Background(), &models.PredictionResult{ID: "a"}))
	assert.Equal(t, 1, down.savedCount())
	assert.Equal(t, 0, b.Pending())
	b.Stop()
}

func TestBufferedStoreRestarts(t *testing.T) {
	down := &flakyStore{failures: 1}
	b := NewBufferedStore(down, metrics.Nop{}, WithRetryBackoff(time.Millisecond, 5*time.Millisecond))
	ctx := context.Background()

	b.Start(ctx)
	b.Stop()
	b.Stop()

	require.Error(t, b.Save(ctx, &models.PredictionResult{ID: "a"}))
	assert.Equal(t, 1, b.Pending())

	b.Start(ctx)
	defer b.Stop()
	assert.Eventually(t, func() bool { return down.savedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}
