package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"
	pkgkafka "CreditRisk/pkg/kafka"
	applogger "CreditRisk/pkg/logger"
)

const (
	sweepInterval = time.Minute
	sweepIdle     = 10 * time.Minute
)

// Runner is a background component started before the HTTP server and
// stopped after it.
type Runner interface {
	Start(ctx context.Context)
	Stop()
}

// Sweeper drops per-key state idle for longer than the given duration.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	runners    []Runner
	sweeper    Sweeper
	closers    []closer
}

type Option func(*App)

// WithConsumer attaches a Kafka consumer and the handlers it dispatches to.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

func WithRunner(r Runner) Option {
	return func(a *App) { a.runners = append(a.runners, r) }
}

func WithSweeper(s Sweeper) Option {
	return func(a *App) { a.sweeper = s }
}

// WithCloser registers a resource released on shutdown. Closers run in
// reverse registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, closer{name: name, fn: fn}) }
}

func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, r := range a.runners {
		r.Start(bg)
	}

	if a.sweeper != nil {
		go a.sweep(bg)
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			a.log.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			a.shutdown()
			return err
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			a.shutdown()
			return err
		}
	}

	a.log.Info("credit risk scorer started", applogger.String("env", a.cfg.Environment))
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sweeper.Sweep(sweepIdle); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown stops intake first, then background work, then releases clients.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for i := len(a.runners) - 1; i >= 0; i-- {
		a.runners[i].Stop()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
