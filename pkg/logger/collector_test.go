package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorFoldsRepeatedWarnings(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "diag", Publisher: pub})

	for i := 0; i < 5; i++ {
		l.Warn("calibration fallback", String("kind", "threshold"))
	}
	l.Error("inference failed", Error(errors.New("boom")))
	require.Equal(t, 2, l.collector.Pending())

	l.RemoveCollector()

	got := pub.entries()
	require.Len(t, got, 2)
	assert.Equal(t, "diag", pub.topic)
	counts := map[string]int{}
	for _, e := range got {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 5, counts["calibration fallback"])
	assert.Equal(t, 1, counts["inference failed"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "diag", Publisher: pub})

	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")
	c.Close()

	assert.Len(t, pub.entries(), 2)
	assert.Equal(t, 0, c.Pending())
}

func TestDebugAndInfoStayOutOfCollector(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)
	pub := &capturePublisher{}
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})

	l.Debug("scored", Float64("p", 0.3))
	l.Info("started", Int("workers", 2))
	assert.Equal(t, 0, l.collector.Pending())
	l.RemoveCollector()

	assert.Contains(t, buf.String(), `"p":0.3`)
	assert.Contains(t, buf.String(), `"workers":2`)
}
