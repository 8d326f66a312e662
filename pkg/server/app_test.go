package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CreditRisk/pkg/config"
	applogger "CreditRisk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeRunner struct {
	name string
	rec  *recorder
}

func (f *fakeRunner) Start(context.Context) { f.rec.add("start " + f.name) }
func (f *fakeRunner) Stop()                 { f.rec.add("stop " + f.name) }

func TestRunContextLifecycleOrder(t *testing.T) {
	rec := &recorder{}
	app := New(config.Default(), applogger.Nop(), nil,
		WithRunner(&fakeRunner{name: "store", rec: rec}),
		WithRunner(&fakeRunner{name: "feed", rec: rec}),
		WithCloser("producer", func() error { rec.add("close producer"); return nil }),
		WithCloser("redis", func() error { rec.add("close redis"); return errors.New("already closed") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}

	assert.Equal(t, []string{
		"start store",
		"start feed",
		"stop feed",
		"stop store",
		"close redis",
		"close producer",
	}, rec.list())
}

func TestNewDefaultsLogger(t *testing.T) {
	app := New(config.Default(), nil, nil)
	assert.NotNil(t, app.log)
}
