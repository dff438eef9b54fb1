// Package market detects cross-venue price spreads on configured trading
// pairs, comparing a live Binance WebSocket feed against Coinbase spot quotes.
package market

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/feed"
	"AlphaScout/internal/scout"
)

const coinbaseSpotURL = "https://api.coinbase.com/v2/prices/%s-%s/spot"

// Scout emits "price_spread" signals when venues diverge beyond the
// configured profit threshold.
type Scout struct {
	*scout.Base

	pairs        []string
	minProfitPct float64
	ticker       *feed.BinanceTicker
}

// New creates the market scout.
func New(base *scout.Base) *Scout {
	return &Scout{Base: base}
}

func (s *Scout) Init(ctx context.Context) error {
	cfg := s.Config()
	s.pairs = cfg.Strings("pairs", []string{"BTC/USDT", "ETH/USDT"})
	s.minProfitPct = cfg.Float("min_profit_pct", 0.1)

	symbols := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		symbols[i] = exchangeSymbol(p)
	}

	s.ticker = feed.NewBinanceTicker(
		cfg.String("websocket_url", "wss://stream.binance.com:9443/stream"),
		symbols,
		cfg.Duration("reconnect_delay", 10*time.Second),
		s.Log(),
	)
	go s.ticker.Run(ctx)
	return nil
}

func (s *Scout) Scan(ctx context.Context) ([]*models.OpportunitySignal, error) {
	return scout.Gather(ctx, s.pairs, s.checkPair, s.Log()), nil
}

// checkPair compares the cached Binance price for one pair against a fresh
// Coinbase spot quote.
func (s *Scout) checkPair(ctx context.Context, pair string) (*models.OpportunitySignal, error) {
	binancePrice, ok := s.ticker.Price(exchangeSymbol(pair))
	if !ok {
		return nil, fmt.Errorf("no feed price for %s yet", pair)
	}

	base, quote, err := splitPair(pair)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := s.GetJSON(ctx, fmt.Sprintf(coinbaseSpotURL, base, quote), &resp); err != nil {
		return nil, err
	}
	coinbasePrice, err := strconv.ParseFloat(resp.Data.Amount, 64)
	if err != nil || coinbasePrice <= 0 {
		return nil, fmt.Errorf("bad coinbase quote for %s: %q", pair, resp.Data.Amount)
	}

	low := math.Min(binancePrice, coinbasePrice)
	spreadPct := math.Abs(binancePrice-coinbasePrice) / low * 100
	if spreadPct < s.minProfitPct {
		return nil, nil
	}

	confidence := math.Min(spreadPct/(s.minProfitPct*10), 0.95)
	return s.NewSignal("price_spread", pair, confidence, map[string]interface{}{
		"binance_price":  binancePrice,
		"coinbase_price": coinbasePrice,
		"spread_pct":     spreadPct,
	}, 5*time.Minute), nil
}

func (s *Scout) Close() error {
	if s.ticker != nil {
		s.ticker.Close()
	}
	return nil
}

func exchangeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

func splitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed pair %q", pair)
	}
	base, quote = parts[0], parts[1]
	// Coinbase quotes stablecoin pairs in fiat.
	if quote == "USDT" || quote == "USDC" {
		quote = "USD"
	}
	return base, quote, nil
}
