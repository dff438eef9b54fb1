package scout

import (
	"context"
	"errors"
	"testing"

	"AlphaScout/internal/domain/models"
	"AlphaScout/pkg/logger"
)

func TestGatherIsolatesFailures(t *testing.T) {
	pairs := []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}

	lookup := func(_ context.Context, pair string) (*models.OpportunitySignal, error) {
		if pair == "ETH/USDT" {
			return nil, errors.New("upstream timeout")
		}
		return models.NewSignal("market", "price_spread", pair, 0.5, nil, 0), nil
	}

	signals := Gather(context.Background(), pairs, lookup, logger.Nop())
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Symbol != "BTC/USDT" || signals[1].Symbol != "SOL/USDT" {
		t.Fatalf("wrong signals or order: %s, %s", signals[0].Symbol, signals[1].Symbol)
	}
}

func TestGatherSkipsQuietItems(t *testing.T) {
	pairs := []string{"BTC/USDT", "ETH/USDT"}

	// A nil signal with nil error means "nothing interesting here".
	lookup := func(_ context.Context, pair string) (*models.OpportunitySignal, error) {
		return nil, nil
	}

	signals := Gather(context.Background(), pairs, lookup, logger.Nop())
	if len(signals) != 0 {
		t.Fatalf("expected no signals, got %d", len(signals))
	}
}

func TestGatherEmptyInput(t *testing.T) {
	signals := Gather(context.Background(), nil, func(context.Context, string) (*models.OpportunitySignal, error) {
		t.Fatalf("lookup must not run for empty input")
		return nil, nil
	}, logger.Nop())
	if len(signals) != 0 {
		t.Fatalf("expected no signals, got %d", len(signals))
	}
}
