// Package feed streams live market data over WebSocket for the market scout.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"AlphaScout/pkg/logger"
)

// BinanceTicker subscribes to the combined miniTicker stream and caches the
// latest price per symbol. The scan loop reads the cache; the stream loop
// reconnects on its own with a fixed delay. Close may be called from another
// goroutine while the stream loop is live.
type BinanceTicker struct {
	baseURL        string
	symbols        []string
	reconnectDelay time.Duration
	log            *logger.Logger

	mu     sync.RWMutex
	prices map[string]float64
	conn   *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewBinanceTicker creates a ticker feed for the given symbols
// (exchange notation, e.g. "BTCUSDT").
func NewBinanceTicker(baseURL string, symbols []string, reconnectDelay time.Duration, log *logger.Logger) *BinanceTicker {
	return &BinanceTicker{
		baseURL:        baseURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		log:            log.With(logger.String("feed", "binance")),
		prices:         make(map[string]float64),
		done:           make(chan struct{}),
	}
}

func (b *BinanceTicker) streamURL() string {
	streams := make([]string, len(b.symbols))
	for i, s := range b.symbols {
		streams[i] = strings.ToLower(s) + "@miniTicker"
	}
	return fmt.Sprintf("%s?streams=%s", b.baseURL, strings.Join(streams, "/"))
}

func (b *BinanceTicker) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.streamURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("binance dial: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	b.log.Info("feed connected", logger.Strings("symbols", b.symbols))
	return conn, nil
}

type miniTickerFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

// Run streams until ctx is cancelled or Close is called, reconnecting on read
// errors.
func (b *BinanceTicker) Run(ctx context.Context) {
	for {
		conn, err := b.connect(ctx)
		if err != nil {
			b.log.Warn("feed connect failed", logger.Error(err))
		} else {
			b.readLoop(ctx, conn)
		}

		select {
		case <-ctx.Done():
			b.Close()
			return
		case <-b.done:
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}

// readLoop drains one connection. Close unblocks the pending read by closing
// the connection under the lock.
func (b *BinanceTicker) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer b.dropConn(conn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !b.closed() {
				b.log.Warn("feed read failed", logger.Error(err))
			}
			return
		}

		var frame miniTickerFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue // non-ticker frame
		}
		price, err := strconv.ParseFloat(frame.Data.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		b.mu.Lock()
		b.prices[frame.Data.Symbol] = price
		b.mu.Unlock()
	}
}

// dropConn closes the given connection and clears the shared field when it is
// still the current one.
func (b *BinanceTicker) dropConn(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = conn.Close()
	if b.conn == conn {
		b.conn = nil
	}
}

func (b *BinanceTicker) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Price returns the latest cached price for an exchange symbol.
func (b *BinanceTicker) Price(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}

// Close stops the stream loop and tears down the current connection. Safe to
// call more than once and from any goroutine.
func (b *BinanceTicker) Close() {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}
