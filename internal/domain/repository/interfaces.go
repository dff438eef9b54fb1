// Package repository defines the domain-facing contracts between the pipeline
// stages and their infrastructure implementations.
package repository

import (
	"context"

	"AlphaScout/internal/domain/models"
)

// SignalStore persists signals idempotently: inserting an id that already
// exists is a silent no-op, so broker redelivery converges on one row.
type SignalStore interface {
	// Insert writes the signal, reporting false when the id already existed.
	Insert(ctx context.Context, s *models.OpportunitySignal) (bool, error)
	// Recent returns the newest persisted signals, newest first.
	Recent(ctx context.Context, limit int) ([]*models.OpportunitySignal, error)
	Health(ctx context.Context) error
	Close()
}

// SignalPublisher hands signals to the signal bus. A returned error means the
// delivery outcome is unknown, never "definitely failed".
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.OpportunitySignal) error
	PublishBatch(ctx context.Context, signals []*models.OpportunitySignal) error
	Close() error
}

// Metrics records operational counters.
type Metrics interface {
	RecordSignal(scout, signalType string)
	RecordPublish(result string)
	RecordConsumed(result string)
	RecordError(kind string)
	RecordLatency(name string, seconds float64)
}
