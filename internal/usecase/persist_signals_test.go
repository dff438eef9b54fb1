package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"AlphaScout/internal/domain/models"
	pkgamqp "AlphaScout/pkg/amqp"
	"AlphaScout/pkg/logger"
	"AlphaScout/pkg/metrics"
)

type fakeStore struct {
	rows      map[string]*models.OpportunitySignal
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.OpportunitySignal)}
}

func (f *fakeStore) Insert(_ context.Context, s *models.OpportunitySignal) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.rows[s.ID]; ok {
		return false, nil
	}
	f.rows[s.ID] = s
	return true, nil
}

func (f *fakeStore) Recent(_ context.Context, _ int) ([]*models.OpportunitySignal, error) {
	out := make([]*models.OpportunitySignal, 0, len(f.rows))
	for _, s := range f.rows {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close()                       {}

func encode(t *testing.T, s *models.OpportunitySignal) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newPersister(store *fakeStore) *SignalPersister {
	return NewSignalPersister("alpha_signals", store, metrics.Nop{}, logger.Nop())
}

func TestHandleStoresValidSignal(t *testing.T) {
	store := newFakeStore()
	h := newPersister(store)

	sig := models.NewSignal("market", "price_spread", "BTC/USDT", 0.8, map[string]interface{}{"spread_pct": 0.4}, time.Minute)
	if err := h.Handle(context.Background(), encode(t, sig)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	stored, ok := store.rows[sig.ID]
	if !ok {
		t.Fatalf("signal %s not stored", sig.ID)
	}
	if stored.Symbol != "BTC/USDT" || stored.Confidence != 0.8 {
		t.Fatalf("stored wrong signal: %+v", stored)
	}
}

func TestHandleRedeliveryIsIdempotent(t *testing.T) {
	store := newFakeStore()
	h := newPersister(store)

	sig := models.NewSignal("defi", "defi_pool", "WETH/USDC", 0.6, nil, 0)
	body := encode(t, sig)

	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), body); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if len(store.rows) != 1 {
		t.Fatalf("expected exactly 1 row after redeliveries, got %d", len(store.rows))
	}
}

func TestHandleDiscardsUndecodablePayload(t *testing.T) {
	store := newFakeStore()
	h := newPersister(store)

	err := h.Handle(context.Background(), []byte("{not json"))
	if !errors.Is(err, pkgamqp.ErrDiscard) {
		t.Fatalf("expected ErrDiscard, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("malformed payload must not be stored")
	}
}

func TestHandleDiscardsIncompleteSignal(t *testing.T) {
	store := newFakeStore()
	h := newPersister(store)

	missingSymbol := &models.OpportunitySignal{
		ID:        "sig-1",
		ScoutName: "market",
		Timestamp: time.Now().UTC(),
	}
	err := h.Handle(context.Background(), encode(t, missingSymbol))
	if !errors.Is(err, pkgamqp.ErrDiscard) {
		t.Fatalf("expected ErrDiscard, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("incomplete signal must not be stored")
	}

	// A poison message must not block the next valid one.
	valid := models.NewSignal("market", "price_spread", "ETH/USDT", 0.5, nil, 0)
	if err := h.Handle(context.Background(), encode(t, valid)); err != nil {
		t.Fatalf("valid signal after poison message: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(store.rows))
	}
}

func TestHandleStoreErrorIsRetryable(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection refused")
	h := newPersister(store)

	sig := models.NewSignal("chain", "whale_movement", "Ethereum", 0.7, nil, 0)
	err := h.Handle(context.Background(), encode(t, sig))
	if err == nil {
		t.Fatalf("expected error on store failure")
	}
	if errors.Is(err, pkgamqp.ErrDiscard) {
		t.Fatalf("store failure must be retryable, got discard: %v", err)
	}

	// Once the store recovers the redelivered message lands.
	store.insertErr = nil
	if err := h.Handle(context.Background(), encode(t, sig)); err != nil {
		t.Fatalf("redelivery after recovery: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 row after recovery, got %d", len(store.rows))
	}
}
