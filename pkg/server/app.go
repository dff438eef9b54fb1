// Package server owns the process lifecycle: it starts the configured
// components, blocks until a shutdown signal and unwinds them gracefully.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgamqp "AlphaScout/pkg/amqp"
	"AlphaScout/pkg/config"
	xhttp "AlphaScout/pkg/http"
	"AlphaScout/pkg/logger"
)

// Runner is a long-lived component driven until context cancellation. Both
// the scout loop and the persistence consumer satisfy it.
type Runner interface {
	Run(ctx context.Context) error
}

// AppOption configures App.
type AppOption func(*App)

// WithRunner attaches a long-lived component.
func WithRunner(r Runner) AppOption {
	return func(a *App) {
		if r != nil {
			a.runners = append(a.runners, r)
		}
	}
}

// WithHTTP attaches the HTTP server.
func WithHTTP(s *xhttp.Server) AppOption {
	return func(a *App) {
		a.httpServer = s
	}
}

// WithCloser registers a resource released during shutdown, after the
// runners have stopped.
func WithCloser(close func()) AppOption {
	return func(a *App) {
		a.closers = append(a.closers, close)
	}
}

// App encapsulates one process (a scout or the persister).
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	runners    []Runner
	httpServer *xhttp.Server
	closers    []func()
}

// New creates an App from its components.
func New(cfg *config.Config, log *logger.Logger, opts ...AppOption) *App {
	a := &App{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts everything and blocks until a signal arrives or a runner fails
// fatally (initialization class). Expected operational failures never reach
// here; components degrade to waiting-and-retrying internally.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, len(a.runners))
	for _, r := range a.runners {
		r := r
		go func() {
			errCh <- r.Run(ctx)
		}()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	running := len(a.runners)
	select {
	case sig := <-sigCh:
		a.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		running--
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("component failed", logger.Error(err))
			runErr = err
		}
	}

	cancel()
	a.shutdown(running, errCh)
	return runErr
}

// shutdown drains the remaining runners, stops HTTP and releases resources.
func (a *App) shutdown(running int, errCh <-chan error) {
	deadline := time.After(a.cfg.Server.ShutdownTimeout)
	for running > 0 {
		select {
		case err := <-errCh:
			running--
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("component stopped with error", logger.Error(err))
			}
		case <-deadline:
			a.log.Warn("shutdown timeout, abandoning remaining components", logger.Int("remaining", running))
			running = 0
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.log.Warn("http stop failed", logger.Error(err))
		}
	}
	for _, close := range a.closers {
		close()
	}
	a.log.Info("shutdown complete")
}

// consumerRunner adapts the AMQP consumer's context error convention: a
// cancellation-driven exit is a clean stop, not a failure.
type consumerRunner struct {
	consumer *pkgamqp.Consumer
}

// NewConsumerRunner wraps an AMQP consumer as a Runner.
func NewConsumerRunner(c *pkgamqp.Consumer) Runner {
	return consumerRunner{consumer: c}
}

func (r consumerRunner) Run(ctx context.Context) error {
	err := r.consumer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
