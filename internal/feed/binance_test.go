package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"AlphaScout/pkg/logger"
)

// startStreamServer serves miniTicker frames for one symbol until the client
// disconnects.
func startStreamServer(t *testing.T, symbol, price string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frame := fmt.Sprintf(`{"stream":"%s@miniTicker","data":{"s":"%s","c":"%s"}}`,
			strings.ToLower(symbol), symbol, price)
		for {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForPrice(t *testing.T, ticker *BinanceTicker, symbol string) float64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := ticker.Price(symbol); ok {
			return p
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no price for %s before deadline", symbol)
	return 0
}

func TestTickerCachesPrices(t *testing.T) {
	srv := startStreamServer(t, "BTCUSDT", "65123.45")
	ticker := NewBinanceTicker(wsURL(srv), []string{"BTCUSDT"}, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ticker.Run(ctx)
	defer ticker.Close()

	if p := waitForPrice(t, ticker, "BTCUSDT"); p != 65123.45 {
		t.Fatalf("price = %v", p)
	}
	if _, ok := ticker.Price("ETHUSDT"); ok {
		t.Fatalf("unexpected price for unsubscribed symbol")
	}
}

func TestTickerCloseDuringRun(t *testing.T) {
	srv := startStreamServer(t, "BTCUSDT", "65123.45")
	ticker := NewBinanceTicker(wsURL(srv), []string{"BTCUSDT"}, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	waitForPrice(t, ticker, "BTCUSDT")

	// Shut down the way the runner does: cancel the context, then close the
	// detector while the stream goroutine is still live.
	cancel()
	ticker.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after Close")
	}

	// The cache stays readable after shutdown.
	if _, ok := ticker.Price("BTCUSDT"); !ok {
		t.Fatalf("price cache lost after Close")
	}
}

func TestTickerCloseIsIdempotent(t *testing.T) {
	srv := startStreamServer(t, "BTCUSDT", "1.0")
	ticker := NewBinanceTicker(wsURL(srv), []string{"BTCUSDT"}, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ticker.Run(ctx)
	waitForPrice(t, ticker, "BTCUSDT")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker.Close()
		}()
	}
	wg.Wait()
}

func TestTickerStopsWithoutConnection(t *testing.T) {
	// Nothing listening: Run must keep retrying and still honor Close.
	ticker := NewBinanceTicker("ws://127.0.0.1:1/stream", []string{"BTCUSDT"}, 5*time.Millisecond, logger.Nop())

	done := make(chan struct{})
	go func() {
		ticker.Run(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	ticker.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after Close")
	}
}
