// Package contract assesses token contract risk from the GoPlus security API
// plus Etherscan source verification.
package contract

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/scout"
	"AlphaScout/pkg/logger"
)

// Scout emits "high_risk_contract" or "low_risk_contract" per watched
// address.
type Scout struct {
	*scout.Base

	chain         string
	addresses     []string
	goplusURL     string
	goplusKey     string
	etherscanURL  string
	etherscanKey  string
	riskThreshold float64
}

// New creates the contract scout.
func New(base *scout.Base) *Scout {
	return &Scout{Base: base}
}

func (s *Scout) Init(_ context.Context) error {
	cfg := s.Config()
	s.chain = cfg.String("chain", "eth")
	s.goplusURL = cfg.String("goplus_url", "https://api.gopluslabs.io/api/v1")
	s.goplusKey = cfg.String("goplus_key", "")
	s.etherscanURL = cfg.String("etherscan_url", "https://api.etherscan.io/api")
	s.etherscanKey = cfg.String("etherscan_key", "")
	s.riskThreshold = cfg.Float("risk_threshold", 60)

	for _, a := range cfg.Strings("addresses", nil) {
		s.addresses = append(s.addresses, strings.ToLower(a))
	}
	if len(s.addresses) == 0 {
		return fmt.Errorf("contract scout: at least one contract address is required")
	}
	return nil
}

func (s *Scout) Scan(ctx context.Context) ([]*models.OpportunitySignal, error) {
	return scout.Gather(ctx, s.addresses, s.analyzeAddress, s.Log()), nil
}

func (s *Scout) analyzeAddress(ctx context.Context, address string) (*models.OpportunitySignal, error) {
	security, err := s.fetchGoPlus(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(security) == 0 {
		return nil, fmt.Errorf("no security data for %s", address)
	}

	risk := riskScore(security)
	verified, creator := s.fetchEtherscanSource(ctx, address)

	signalType := "low_risk_contract"
	if risk > s.riskThreshold {
		signalType = "high_risk_contract"
	}
	confidence := math.Max(0.1, (100-risk)/100)

	return s.NewSignal(signalType, address, confidence, map[string]interface{}{
		"chain":      s.chain,
		"risk_score": risk,
		"honeypot":   security["is_honeypot"] == "1",
		"verified":   verified,
		"creator":    creator,
	}, time.Hour), nil
}

func (s *Scout) fetchGoPlus(ctx context.Context, address string) (map[string]string, error) {
	u := fmt.Sprintf("%s/token_security/%s?contract_addresses=%s", s.goplusURL, s.chain, address)
	if s.goplusKey != "" {
		u += "&apikey=" + s.goplusKey
	}

	var resp struct {
		Result map[string]map[string]interface{} `json:"result"`
	}
	if err := s.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	flat := make(map[string]string)
	for k, v := range resp.Result[address] {
		if sv, ok := v.(string); ok {
			flat[k] = sv
		}
	}
	return flat, nil
}

// fetchEtherscanSource is best-effort enrichment; failures degrade to
// unverified rather than failing the address analysis.
func (s *Scout) fetchEtherscanSource(ctx context.Context, address string) (verified bool, creator string) {
	if s.etherscanKey == "" {
		return false, ""
	}

	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	q.Set("apikey", s.etherscanKey)

	var resp struct {
		Status string `json:"status"`
		Result []struct {
			SourceCode      string `json:"SourceCode"`
			ContractCreator string `json:"ContractCreator"`
		} `json:"result"`
	}
	if err := s.GetJSON(ctx, s.etherscanURL+"?"+q.Encode(), &resp); err != nil {
		s.Log().Debug("etherscan source lookup failed",
			logger.String("address", address),
			logger.Error(err))
		return false, ""
	}
	if resp.Status != "1" || len(resp.Result) == 0 {
		return false, ""
	}
	return resp.Result[0].SourceCode != "", resp.Result[0].ContractCreator
}

// riskScore folds the GoPlus flags into 0 (safe) .. 100 (high risk).
func riskScore(security map[string]string) float64 {
	var risk float64
	if security["is_honeypot"] == "1" {
		risk += 60
	}
	if security["is_open_source"] == "0" {
		risk += 25
	}
	if security["is_proxy"] == "1" {
		risk += 10
	}
	if security["can_take_back_ownership"] == "1" {
		risk += 15
	}
	if security["is_mintable"] == "1" {
		risk += 10
	}
	return math.Min(risk, 100)
}

func (s *Scout) Close() error {
	return nil
}
