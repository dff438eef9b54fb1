package scout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AlphaScout/internal/domain/models"
	domrepo "AlphaScout/internal/domain/repository"
	"AlphaScout/pkg/logger"
)

// SignalFilter drops signals before publish. Used for the cooldown guard.
type SignalFilter interface {
	Filter(ctx context.Context, signals []*models.OpportunitySignal) []*models.OpportunitySignal
}

// RunnerOption configures Runner.
type RunnerOption func(*Runner)

// WithInterval overrides the scan interval from the config map.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFilter installs a pre-publish signal filter.
func WithFilter(f SignalFilter) RunnerOption {
	return func(r *Runner) {
		r.filter = f
	}
}

// Runner owns one detector's scan→publish→sleep loop. The loop terminates
// only on context cancellation and runs cleanup exactly once on every exit
// path, including errors escaping initialization.
type Runner struct {
	base      *Base
	det       Detector
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	filter    SignalFilter
	interval  time.Duration

	cleanupOnce sync.Once
}

// NewRunner wires a detector to the signal bus.
func NewRunner(base *Base, det Detector, publisher domrepo.SignalPublisher, metrics domrepo.Metrics, log *logger.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		base:      base,
		det:       det,
		publisher: publisher,
		metrics:   metrics,
		log:       log.With(logger.String("scout", det.Name())),
		interval:  base.Config().Duration("scan_interval", 30*time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the scout lifecycle until ctx is cancelled. Initialization
// failures are fatal (configuration class); everything after that degrades to
// log-and-retry-next-interval.
func (r *Runner) Run(ctx context.Context) error {
	defer r.cleanup()

	if err := r.base.Initialize(ctx); err != nil {
		return fmt.Errorf("scout %s: initialize: %w", r.det.Name(), err)
	}
	if err := r.det.Init(ctx); err != nil {
		return fmt.Errorf("scout %s: init: %w", r.det.Name(), err)
	}

	r.log.Info("scout started", logger.Duration("interval", r.interval))

	for {
		r.cycle(ctx)

		select {
		case <-ctx.Done():
			r.log.Info("scout stopping")
			return nil
		case <-time.After(r.interval):
		}
	}
}

// cycle runs one scan and publish. Errors never escape: a failed scan or
// publish is logged and the loop proceeds to the next interval. Signals from
// a failed publish batch are dropped, to be re-derived next cycle if the
// underlying condition persists.
func (r *Runner) cycle(ctx context.Context) {
	start := time.Now()
	signals, err := r.det.Scan(ctx)
	r.metrics.RecordLatency("scan_seconds", time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Error("scan failed", logger.Error(err))
		r.metrics.RecordError("scan")
		return
	}

	if r.filter != nil {
		signals = r.filter.Filter(ctx, signals)
	}
	if len(signals) == 0 {
		return
	}

	for _, s := range signals {
		r.metrics.RecordSignal(s.ScoutName, s.SignalType)
	}

	if err := r.publisher.PublishBatch(ctx, signals); err != nil {
		r.log.Error("publish failed, dropping batch",
			logger.Int("signals", len(signals)),
			logger.Error(err))
		r.metrics.RecordPublish("error")
		return
	}

	r.metrics.RecordPublish("ok")
	r.log.Info("signals published", logger.Int("count", len(signals)))
}

// cleanup releases detector and base resources exactly once.
func (r *Runner) cleanup() {
	r.cleanupOnce.Do(func() {
		if err := r.det.Close(); err != nil {
			r.log.Warn("detector close failed", logger.Error(err))
		}
		r.base.Cleanup()
		r.log.Info("scout cleaned up")
	})
}
