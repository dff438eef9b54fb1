// Package sentiment detects attention spikes on watched symbols from the
// CoinGecko trending feed.
package sentiment

import (
	"context"
	"math"
	"strings"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/scout"
)

// Scout emits "sentiment_spike" when a watched symbol enters the trending
// list.
type Scout struct {
	*scout.Base

	trendingURL string
	watched     map[string]bool
	minScore    float64
}

// New creates the sentiment scout.
func New(base *scout.Base) *Scout {
	return &Scout{Base: base}
}

func (s *Scout) Init(_ context.Context) error {
	cfg := s.Config()
	s.trendingURL = cfg.String("trending_url", "https://api.coingecko.com/api/v3/search/trending")
	s.minScore = cfg.Float("min_score", 3)

	s.watched = make(map[string]bool)
	for _, sym := range cfg.Strings("symbols", []string{"BTC", "ETH", "SOL"}) {
		s.watched[strings.ToUpper(sym)] = true
	}
	return nil
}

type trendingCoin struct {
	Item struct {
		Symbol        string  `json:"symbol"`
		Name          string  `json:"name"`
		MarketCapRank int     `json:"market_cap_rank"`
		Score         float64 `json:"score"` // trending rank, 0 is hottest
	} `json:"item"`
}

func (s *Scout) Scan(ctx context.Context) ([]*models.OpportunitySignal, error) {
	var resp struct {
		Coins []trendingCoin `json:"coins"`
	}
	if err := s.GetJSON(ctx, s.trendingURL, &resp); err != nil {
		return nil, err
	}

	var signals []*models.OpportunitySignal
	for _, coin := range resp.Coins {
		symbol := strings.ToUpper(coin.Item.Symbol)
		if !s.watched[symbol] {
			continue
		}
		// Trending position: lower score means hotter.
		heat := math.Max(s.minScore, 15-coin.Item.Score)
		confidence := math.Min(heat/15, 0.9)

		signals = append(signals, s.NewSignal("sentiment_spike", symbol, confidence, map[string]interface{}{
			"name":            coin.Item.Name,
			"trending_score":  coin.Item.Score,
			"market_cap_rank": coin.Item.MarketCapRank,
		}, 15*time.Minute))
	}
	return signals, nil
}

func (s *Scout) Close() error {
	return nil
}
