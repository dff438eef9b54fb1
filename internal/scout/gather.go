package scout

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"AlphaScout/internal/domain/models"
	"AlphaScout/pkg/logger"
)

// Gather fans lookup over items concurrently and joins the results. A failed
// or empty item is logged and excluded; one bad item never blocks the batch.
// Result order follows input order.
func Gather[T any](ctx context.Context, items []T, lookup func(context.Context, T) (*models.OpportunitySignal, error), log *logger.Logger) []*models.OpportunitySignal {
	results := make([]*models.OpportunitySignal, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	var mu sync.Mutex
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			sig, err := lookup(ctx, item)
			if err != nil {
				log.Warn("item lookup failed", logger.Any("item", item), logger.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = sig
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // lookups never propagate errors

	signals := make([]*models.OpportunitySignal, 0, len(items))
	for _, sig := range results {
		if sig != nil {
			signals = append(signals, sig)
		}
	}
	return signals
}
