package scout_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"AlphaScout/internal/domain/models"
	domrepo "AlphaScout/internal/domain/repository"
	"AlphaScout/internal/scout"
	"AlphaScout/internal/usecase"
	"AlphaScout/pkg/logger"
	"AlphaScout/pkg/metrics"
)

type fakeDetector struct {
	name    string
	initErr error
	scanErr error

	mu      sync.Mutex
	pending []*models.OpportunitySignal
	scans   int
	closes  int
}

func (d *fakeDetector) Name() string { return d.name }

func (d *fakeDetector) Init(context.Context) error { return d.initErr }

func (d *fakeDetector) Scan(context.Context) ([]*models.OpportunitySignal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scans++
	if d.scanErr != nil {
		return nil, d.scanErr
	}
	out := d.pending
	d.pending = nil
	return out, nil
}

func (d *fakeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]*models.OpportunitySignal
	err     error
	done    chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, s *models.OpportunitySignal) error {
	return p.PublishBatch(ctx, []*models.OpportunitySignal{s})
}

func (p *fakePublisher) PublishBatch(_ context.Context, signals []*models.OpportunitySignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, signals)
	if p.done != nil {
		select {
		case p.done <- struct{}{}:
		default:
		}
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newRunner(t *testing.T, det *fakeDetector, pub domrepo.SignalPublisher, opts ...scout.RunnerOption) *scout.Runner {
	t.Helper()
	base := scout.NewBase(det.name, scout.Config{}, logger.Nop())
	opts = append([]scout.RunnerOption{scout.WithInterval(5 * time.Millisecond)}, opts...)
	return scout.NewRunner(base, det, pub, metrics.Nop{}, logger.Nop(), opts...)
}

func TestRunnerPublishesScanResults(t *testing.T) {
	det := &fakeDetector{
		name: "market",
		pending: []*models.OpportunitySignal{
			models.NewSignal("market", "price_spread", "BTC/USDT", 0.8, nil, time.Minute),
		},
	}
	pub := &fakePublisher{done: make(chan struct{}, 1)}
	r := newRunner(t, det, pub)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner never published")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(pub.batches))
	}
	got := pub.batches[0]
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	if got[0].Symbol != "BTC/USDT" || got[0].Confidence != 0.8 || got[0].ScoutName != "market" {
		t.Fatalf("wrong signal published: %+v", got[0])
	}
}

func TestRunnerInitFailureIsFatalAndCleansUp(t *testing.T) {
	det := &fakeDetector{name: "chain", initErr: errors.New("no addresses configured")}
	r := newRunner(t, det, &fakePublisher{})

	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected init error to abort the runner")
	}
	if det.closes != 1 {
		t.Fatalf("expected cleanup exactly once, Close ran %d times", det.closes)
	}
}

func TestRunnerCleanupRunsOnce(t *testing.T) {
	det := &fakeDetector{name: "defi"}
	r := newRunner(t, det, &fakePublisher{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if det.closes != 1 {
		t.Fatalf("expected Close exactly once, got %d", det.closes)
	}
}

func TestRunnerSurvivesScanAndPublishFailures(t *testing.T) {
	det := &fakeDetector{name: "sentiment", scanErr: errors.New("upstream 503")}
	r := newRunner(t, det, &fakePublisher{err: errors.New("broker down")})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run must absorb cycle failures: %v", err)
	}

	det.mu.Lock()
	defer det.mu.Unlock()
	if det.scans < 2 {
		t.Fatalf("expected the loop to keep scanning after errors, got %d scans", det.scans)
	}
}

func TestRunnerAppliesFilter(t *testing.T) {
	det := &fakeDetector{
		name: "market",
		pending: []*models.OpportunitySignal{
			models.NewSignal("market", "price_spread", "BTC/USDT", 0.8, nil, 0),
			models.NewSignal("market", "price_spread", "ETH/USDT", 0.5, nil, 0),
		},
	}
	pub := &fakePublisher{done: make(chan struct{}, 1)}
	r := newRunner(t, det, pub, scout.WithFilter(keepSymbol("ETH/USDT")))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner never published")
	}
	cancel()
	<-errCh

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 || len(pub.batches[0]) != 1 {
		t.Fatalf("expected 1 batch of 1 filtered signal, got %+v", pub.batches)
	}
	if pub.batches[0][0].Symbol != "ETH/USDT" {
		t.Fatalf("filter kept wrong signal: %s", pub.batches[0][0].Symbol)
	}
}

type keepSymbol string

func (k keepSymbol) Filter(_ context.Context, signals []*models.OpportunitySignal) []*models.OpportunitySignal {
	kept := signals[:0]
	for _, s := range signals {
		if s.Symbol == string(k) {
			kept = append(kept, s)
		}
	}
	return kept
}

// bridgePublisher short-circuits the broker: every published signal is encoded
// and delivered straight into the persistence handler, twice, to exercise the
// at-least-once path end to end.
type bridgePublisher struct {
	handler *usecase.SignalPersister
	done    chan struct{}
}

func (p *bridgePublisher) Publish(ctx context.Context, s *models.OpportunitySignal) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := p.handler.Handle(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (p *bridgePublisher) PublishBatch(ctx context.Context, signals []*models.OpportunitySignal) error {
	for _, s := range signals {
		if err := p.Publish(ctx, s); err != nil {
			return err
		}
	}
	select {
	case p.done <- struct{}{}:
	default:
	}
	return nil
}

func (p *bridgePublisher) Close() error { return nil }

type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.OpportunitySignal
}

func (m *memStore) Insert(_ context.Context, s *models.OpportunitySignal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; ok {
		return false, nil
	}
	m.rows[s.ID] = s
	return true, nil
}

func (m *memStore) Recent(context.Context, int) ([]*models.OpportunitySignal, error) {
	return nil, nil
}
func (m *memStore) Health(context.Context) error { return nil }
func (m *memStore) Close()                       {}

func TestScoutToStorePipeline(t *testing.T) {
	store := &memStore{rows: make(map[string]*models.OpportunitySignal)}
	handler := usecase.NewSignalPersister("alpha_signals", store, metrics.Nop{}, logger.Nop())

	sig := models.NewSignal("market", "price_spread", "BTC/USDT", 0.8, nil, time.Minute)
	det := &fakeDetector{name: "market", pending: []*models.OpportunitySignal{sig}}
	pub := &bridgePublisher{handler: handler, done: make(chan struct{}, 1)}
	r := newRunner(t, det, pub)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline never delivered")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.rows) != 1 {
		t.Fatalf("expected exactly 1 row after duplicate delivery, got %d", len(store.rows))
	}
	if _, ok := store.rows[sig.ID]; !ok {
		t.Fatalf("stored row has wrong id")
	}
}

func TestNewSignalBeforeInitializePanics(t *testing.T) {
	base := scout.NewBase("market", scout.Config{}, logger.Nop())

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic from factory use before Initialize")
		}
	}()
	base.NewSignal("price_spread", "BTC/USDT", 0.5, nil, 0)
}
