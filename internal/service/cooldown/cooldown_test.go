package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/pkg/cache"
	"AlphaScout/pkg/logger"
)

func TestFilterSuppressesRepeats(t *testing.T) {
	g := New(cache.NewMemory(), 10*time.Minute, logger.Nop())

	first := []*models.OpportunitySignal{
		models.NewSignal("market", "price_spread", "BTC/USDT", 0.8, nil, 0),
	}
	if kept := g.Filter(context.Background(), first); len(kept) != 1 {
		t.Fatalf("first sighting must pass, kept %d", len(kept))
	}

	// Same (scout, type, symbol) tuple on the next cycle, different id.
	repeat := []*models.OpportunitySignal{
		models.NewSignal("market", "price_spread", "BTC/USDT", 0.9, nil, 0),
	}
	if kept := g.Filter(context.Background(), repeat); len(kept) != 0 {
		t.Fatalf("repeat within TTL must be suppressed, kept %d", len(kept))
	}

	other := []*models.OpportunitySignal{
		models.NewSignal("market", "price_spread", "ETH/USDT", 0.8, nil, 0),
	}
	if kept := g.Filter(context.Background(), other); len(kept) != 1 {
		t.Fatalf("different symbol must pass, kept %d", len(kept))
	}
}

type brokenCache struct{}

func (brokenCache) SetNX(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}
func (brokenCache) Close() error { return nil }

func TestFilterPassesThroughOnCacheError(t *testing.T) {
	g := New(brokenCache{}, 10*time.Minute, logger.Nop())

	signals := []*models.OpportunitySignal{
		models.NewSignal("defi", "defi_pool", "WETH/USDC", 0.6, nil, 0),
	}
	if kept := g.Filter(context.Background(), signals); len(kept) != 1 {
		t.Fatalf("cache failure must not drop signals, kept %d", len(kept))
	}
}

func TestFilterEmptyBatch(t *testing.T) {
	g := New(cache.NewMemory(), time.Minute, logger.Nop())
	if kept := g.Filter(context.Background(), nil); len(kept) != 0 {
		t.Fatalf("expected empty result")
	}
}
