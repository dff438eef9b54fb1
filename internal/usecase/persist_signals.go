package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AlphaScout/internal/domain/models"
	domrepo "AlphaScout/internal/domain/repository"
	pkgamqp "AlphaScout/pkg/amqp"
	"AlphaScout/pkg/logger"
)

// SignalPersister turns queue deliveries into idempotent store rows.
//
// Failure classes map onto delivery settlement: undecodable or incomplete
// payloads are permanent (wrapped in amqp.ErrDiscard, acked and dropped);
// store errors are transient (returned bare, nacked back for redelivery).
type SignalPersister struct {
	queue   string
	store   domrepo.SignalStore
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewSignalPersister creates the handler for the given queue.
func NewSignalPersister(queue string, store domrepo.SignalStore, metrics domrepo.Metrics, log *logger.Logger) *SignalPersister {
	return &SignalPersister{queue: queue, store: store, metrics: metrics, log: log}
}

func (h *SignalPersister) Queue() string { return h.queue }

func (h *SignalPersister) Handle(ctx context.Context, body []byte) error {
	var sig models.OpportunitySignal
	if err := json.Unmarshal(body, &sig); err != nil {
		h.log.Warn("discarding undecodable message", logger.Error(err))
		h.metrics.RecordConsumed("malformed")
		return fmt.Errorf("%w: decode: %v", pkgamqp.ErrDiscard, err)
	}

	if err := sig.Validate(); err != nil {
		h.log.Warn("discarding message with missing required fields",
			logger.String("id", sig.ID),
			logger.String("scout", sig.ScoutName),
			logger.Error(err))
		h.metrics.RecordConsumed("malformed")
		return fmt.Errorf("%w: validate: %v", pkgamqp.ErrDiscard, err)
	}

	start := time.Now()
	inserted, err := h.store.Insert(ctx, &sig)
	h.metrics.RecordLatency("store_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("store_insert")
		return fmt.Errorf("store signal %s: %w", sig.ID, err)
	}

	if !inserted {
		// Broker redelivery of an already-stored signal.
		h.log.Debug("duplicate signal ignored", logger.String("id", sig.ID))
		h.metrics.RecordConsumed("duplicate")
		return nil
	}

	h.log.Debug("signal persisted",
		logger.String("id", sig.ID),
		logger.String("scout", sig.ScoutName),
		logger.String("symbol", sig.Symbol))
	h.metrics.RecordConsumed("stored")
	return nil
}

var _ pkgamqp.DeliveryHandler = (*SignalPersister)(nil)
