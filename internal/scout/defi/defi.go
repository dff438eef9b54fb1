// Package defi detects high-yield liquidity pools from the DefiLlama yields
// feed.
package defi

import (
	"context"
	"math"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/scout"
)

// Scout emits "defi_pool" signals for pools over the TVL floor with outlier
// APY.
type Scout struct {
	*scout.Base

	poolsURL string
	chains   map[string]bool
	minTVL   float64
	minAPY   float64
	maxBatch int
}

// New creates the DeFi scout.
func New(base *scout.Base) *Scout {
	return &Scout{Base: base}
}

func (s *Scout) Init(_ context.Context) error {
	cfg := s.Config()
	s.poolsURL = cfg.String("pools_url", "https://yields.llama.fi/pools")
	s.minTVL = cfg.Float("min_tvl", 1_000_000)
	s.minAPY = cfg.Float("min_apy", 15)
	s.maxBatch = cfg.Int("max_batch", 10)

	s.chains = make(map[string]bool)
	for _, c := range cfg.Strings("chains", []string{"Ethereum", "Arbitrum", "Polygon"}) {
		s.chains[c] = true
	}
	return nil
}

type poolEntry struct {
	Chain   string  `json:"chain"`
	Project string  `json:"project"`
	Symbol  string  `json:"symbol"`
	TVLUSD  float64 `json:"tvlUsd"`
	APY     float64 `json:"apy"`
}

func (s *Scout) Scan(ctx context.Context) ([]*models.OpportunitySignal, error) {
	var resp struct {
		Status string      `json:"status"`
		Data   []poolEntry `json:"data"`
	}
	if err := s.GetJSON(ctx, s.poolsURL, &resp); err != nil {
		return nil, err
	}

	var signals []*models.OpportunitySignal
	for _, pool := range resp.Data {
		if len(signals) >= s.maxBatch {
			break
		}
		if !s.chains[pool.Chain] || pool.Symbol == "" {
			continue
		}
		if pool.TVLUSD < s.minTVL || pool.APY < s.minAPY {
			continue
		}

		confidence := math.Min(pool.TVLUSD/10_000_000, 0.9)
		signals = append(signals, s.NewSignal("defi_pool", pool.Symbol, confidence, map[string]interface{}{
			"protocol": pool.Project,
			"chain":    pool.Chain,
			"tvl_usd":  pool.TVLUSD,
			"apy":      pool.APY,
		}, 10*time.Minute))
	}
	return signals, nil
}

func (s *Scout) Close() error {
	return nil
}
