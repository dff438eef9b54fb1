// Package chain watches configured addresses on an Etherscan-family explorer
// and flags large recent transfers.
package chain

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/scout"
)

const weiPerETH = 1e18

// Scout emits "whale_movement" signals when a watched address moves more than
// the configured value.
type Scout struct {
	*scout.Base

	explorerURL string
	apiKey      string
	chainName   string
	addresses   []string
	minValueETH float64
	lookback    time.Duration
}

// New creates the chain scout.
func New(base *scout.Base) *Scout {
	return &Scout{Base: base}
}

func (s *Scout) Init(_ context.Context) error {
	cfg := s.Config()
	s.explorerURL = cfg.String("explorer_url", "https://api.etherscan.io/api")
	s.apiKey = cfg.String("api_key", "")
	s.chainName = cfg.String("chain_name", "Ethereum")
	s.minValueETH = cfg.Float("min_value_eth", 100)
	s.lookback = cfg.Duration("lookback", 15*time.Minute)

	s.addresses = cfg.Strings("addresses", nil)
	if len(s.addresses) == 0 {
		return fmt.Errorf("chain scout: at least one watch address is required")
	}
	return nil
}

type explorerTx struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"` // wei, decimal string
	TimeStamp string `json:"timeStamp"`
}

func (s *Scout) Scan(ctx context.Context) ([]*models.OpportunitySignal, error) {
	return scout.Gather(ctx, s.addresses, s.checkAddress, s.Log()), nil
}

// checkAddress returns a signal for the largest qualifying transfer within
// the lookback window, or nil when the address is quiet.
func (s *Scout) checkAddress(ctx context.Context, address string) (*models.OpportunitySignal, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("page", "1")
	q.Set("offset", "25")
	q.Set("sort", "desc")
	if s.apiKey != "" {
		q.Set("apikey", s.apiKey)
	}

	var resp struct {
		Status string       `json:"status"`
		Result []explorerTx `json:"result"`
	}
	if err := s.GetJSON(ctx, s.explorerURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		// "0" covers both errors and empty result sets; neither is a signal.
		return nil, nil
	}

	cutoff := time.Now().Add(-s.lookback).Unix()
	var best *explorerTx
	var bestETH float64
	for i, tx := range resp.Result {
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil || ts < cutoff {
			continue
		}
		wei, err := strconv.ParseFloat(tx.Value, 64)
		if err != nil {
			continue
		}
		eth := wei / weiPerETH
		if eth >= s.minValueETH && eth > bestETH {
			best = &resp.Result[i]
			bestETH = eth
		}
	}
	if best == nil {
		return nil, nil
	}

	confidence := math.Min(bestETH/(s.minValueETH*10), 0.9)
	return s.NewSignal("whale_movement", s.chainName, confidence, map[string]interface{}{
		"address":   address,
		"tx_hash":   best.Hash,
		"value_eth": bestETH,
		"from":      best.From,
		"to":        best.To,
		"chain":     s.chainName,
	}, 5*time.Minute), nil
}

func (s *Scout) Close() error {
	return nil
}
