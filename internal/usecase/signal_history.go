package usecase

import (
	"context"

	"AlphaScout/internal/domain/models"
	domrepo "AlphaScout/internal/domain/repository"
)

// SignalHistory is the read-only view over persisted signals consumed by the
// API and by offline report generators. It never writes.
type SignalHistory struct {
	store domrepo.SignalStore
}

func NewSignalHistory(store domrepo.SignalStore) *SignalHistory {
	return &SignalHistory{store: store}
}

// Recent returns up to limit signals, newest first. Limit is capped at 500.
func (h *SignalHistory) Recent(ctx context.Context, limit int) ([]*models.OpportunitySignal, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return h.store.Recent(ctx, limit)
}

// Health reports store reachability.
func (h *SignalHistory) Health(ctx context.Context) error {
	return h.store.Health(ctx)
}
