// Package scout provides the producer framework every detector variant runs
// on: a shared Base with the signal factory, a typed view over the key/value
// configuration map, and the interval Runner that drives scan/publish cycles.
package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/pkg/logger"
)

// Detector is implemented by each concrete scout variant (market, defi,
// chain, contract, sentiment). Implementations hold no shared mutable state;
// each process owns exactly one detector.
type Detector interface {
	Name() string
	// Init performs domain setup (address lists, protocol names, feeds).
	// Called once by the runner after shared resources exist.
	Init(ctx context.Context) error
	// Scan evaluates the detection domain and returns zero or more signals.
	// Expected per-item failures are swallowed inside the scan; an error
	// return means the whole cycle failed (total outage class).
	Scan(ctx context.Context) ([]*models.OpportunitySignal, error)
	// Close releases detector-owned resources. Called exactly once.
	Close() error
}

// Base carries the state shared by all detector variants: the configuration
// map, the HTTP client and the signal factory. Detectors embed a *Base.
type Base struct {
	name   string
	cfg    Config
	log    *logger.Logger
	client *http.Client
	ready  bool
}

// NewBase creates the shared scout state. I/O handles are allocated lazily in
// Initialize, not here.
func NewBase(name string, cfg Config, log *logger.Logger) *Base {
	if cfg == nil {
		cfg = Config{}
	}
	return &Base{
		name: name,
		cfg:  cfg,
		log:  log.With(logger.String("scout", name)),
	}
}

// Initialize allocates shared resources. Calling it again is a no-op.
func (b *Base) Initialize(_ context.Context) error {
	if b.ready {
		return nil
	}
	b.client = &http.Client{
		Timeout: b.cfg.Duration("http_timeout", 20*time.Second),
	}
	b.ready = true
	return nil
}

// Cleanup releases shared resources. Runs on every exit path.
func (b *Base) Cleanup() {
	if b.client != nil {
		b.client.CloseIdleConnections()
	}
	b.ready = false
}

// NewSignal is the sole signal-construction entry point: it stamps id,
// timestamp and expiry and clamps confidence to [0,1]. Using the factory
// before Initialize is a programmer error and fails loud.
func (b *Base) NewSignal(signalType, symbol string, confidence float64, data map[string]interface{}, validFor time.Duration) *models.OpportunitySignal {
	if !b.ready {
		panic(fmt.Sprintf("scout %s: NewSignal called before Initialize", b.name))
	}
	return models.NewSignal(b.name, signalType, symbol, confidence, data, validFor)
}

// Name returns the scout name stamped on every signal.
func (b *Base) Name() string { return b.name }

// Config returns the configuration map.
func (b *Base) Config() Config { return b.cfg }

// Log returns the scout-scoped logger.
func (b *Base) Log() *logger.Logger { return b.log }

// HTTP returns the shared HTTP client.
func (b *Base) HTTP() *http.Client {
	if !b.ready {
		panic(fmt.Sprintf("scout %s: HTTP client used before Initialize", b.name))
	}
	return b.client
}

// GetJSON fetches url and decodes the JSON response into out.
func (b *Base) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.HTTP().Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
