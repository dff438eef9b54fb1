// Package cooldown suppresses re-publishing the same opportunity every scan
// cycle. Dedup by id still happens at the store; this guard only cuts queue
// noise when a condition persists across cycles.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/pkg/cache"
	"AlphaScout/pkg/logger"
)

// Guard filters signals whose (scout, type, symbol) tuple was already
// published within the TTL.
type Guard struct {
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// New creates a guard over the given cache backend.
func New(c cache.Cache, ttl time.Duration, log *logger.Logger) *Guard {
	return &Guard{cache: c, ttl: ttl, log: log}
}

// Filter returns the signals not seen within the TTL. The guard is
// best-effort: on cache errors the signal passes through, because dropping a
// discovery is worse than a duplicate the store ignores anyway.
func (g *Guard) Filter(ctx context.Context, signals []*models.OpportunitySignal) []*models.OpportunitySignal {
	if len(signals) == 0 {
		return signals
	}

	kept := make([]*models.OpportunitySignal, 0, len(signals))
	for _, s := range signals {
		key := fmt.Sprintf("cooldown:%s:%s:%s", s.ScoutName, s.SignalType, s.Symbol)
		fresh, err := g.cache.SetNX(ctx, key, g.ttl)
		if err != nil {
			g.log.Warn("cooldown cache unavailable, passing signal through", logger.Error(err))
			kept = append(kept, s)
			continue
		}
		if !fresh {
			g.log.Debug("signal suppressed by cooldown",
				logger.String("symbol", s.Symbol),
				logger.String("signal_type", s.SignalType))
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
