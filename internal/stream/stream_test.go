package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
)

// fakeFeed serves the combined-stream endpoint and hands each accepted
// connection to the script along with its ordinal.
func fakeFeed(t *testing.T, script func(conn *websocket.Conn, connIndex int)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var conns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(conn, int(atomic.AddInt32(&conns, 1)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func tradeMessage(symbol string, price float64, ts int64) []byte {
	return []byte(fmt.Sprintf(
		`{"stream":"%s@trade","data":{"s":"%s","p":"%v","T":%d}}`,
		strings.ToLower(symbol), symbol, price, ts,
	))
}

func TestStreamDeliversTicksInOrder(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		for i := 0; i < 3; i++ {
			msg := tradeMessage("BTCUSDT", 97000+float64(i), time.Now().UnixMilli())
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"BTCUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	ticks := make(chan sig.Tick, 8)
	s.AddCallback(func(tick sig.Tick) { ticks <- tick })

	s.Start()
	defer s.Stop()

	for i := 0; i < 3; i++ {
		select {
		case tick := <-ticks:
			if tick.Symbol != "BTCUSDT" {
				t.Fatalf("unexpected symbol %q", tick.Symbol)
			}
			if tick.Price != 97000+float64(i) {
				t.Fatalf("tick %d out of order: got %.2f", i, tick.Price)
			}
			if tick.Ts.IsZero() {
				t.Fatalf("tick timestamp not set")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick %d", i)
		}
	}

	if price, ok := s.LastPrice("BTCUSDT"); !ok || price != 97002 {
		t.Fatalf("unexpected last price: %.2f (ok=%v)", price, ok)
	}
}

func TestStreamSkipsMalformedMessages(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		payloads := [][]byte{
			[]byte(`not json at all`),
			[]byte(`{"stream":"btcusdt@trade","data":{"s":"BTCUSDT","p":"abc","T":1}}`),
			[]byte(`{"stream":"btcusdt@trade","data":{"s":"BTCUSDT","p":"-5","T":1}}`),
			[]byte(`{"stream":"","data":{}}`),
			tradeMessage("ETHUSDT", 2500.5, 0),
		}
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"ETHUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	ticks := make(chan sig.Tick, 8)
	s.AddCallback(func(tick sig.Tick) { ticks <- tick })

	s.Start()
	defer s.Stop()

	select {
	case tick := <-ticks:
		if tick.Symbol != "ETHUSDT" || tick.Price != 2500.5 {
			t.Fatalf("unexpected tick: %+v", tick)
		}
		if tick.Ts.IsZero() {
			t.Fatalf("zero trade time must fall back to wall clock")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("valid tick never arrived")
	}

	select {
	case tick := <-ticks:
		t.Fatalf("malformed payload produced a tick: %+v", tick)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, connIndex int) {
		if connIndex == 1 {
			msg := tradeMessage("BTCUSDT", 100, 1)
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			return // drop the connection
		}
		msg := tradeMessage("BTCUSDT", 200, 2)
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"BTCUSDT"}, zerolog.Nop(),
		WithBaseURL(wsURL(srv)), WithBackoff(50*time.Millisecond))
	ticks := make(chan sig.Tick, 8)
	s.AddCallback(func(tick sig.Tick) { ticks <- tick })

	s.Start()
	defer s.Stop()

	var prices []float64
	for len(prices) < 2 {
		select {
		case tick := <-ticks:
			prices = append(prices, tick.Price)
		case <-time.After(3 * time.Second):
			t.Fatalf("expected ticks across reconnect, got %v", prices)
		}
	}
	if prices[0] != 100 || prices[1] != 200 {
		t.Fatalf("duplicate or reordered ticks across reconnect: %v", prices)
	}
}

func TestStreamStopIsFinal(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		for i := 0; ; i++ {
			msg := tradeMessage("BTCUSDT", float64(100+i), int64(i+1))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	s := NewPriceStream([]string{"BTCUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	var mu sync.Mutex
	var count int
	s.AddCallback(func(sig.Tick) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	s.Start()
	if !s.Running() {
		t.Fatalf("stream should report running after Start")
	}
	time.Sleep(100 * time.Millisecond)

	s.Stop()
	if s.Running() {
		t.Fatalf("stream should report stopped after Stop")
	}
	mu.Lock()
	seen := count
	mu.Unlock()
	if seen == 0 {
		t.Fatalf("expected ticks before stop")
	}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()
	if after != seen {
		t.Fatalf("callback fired after Stop returned: %d -> %d", seen, after)
	}

	// repeated stop is a no-op
	s.Stop()
}

func TestStreamStartTwiceIsNoOp(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"BTCUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	s.Start()
	defer s.Stop()
	s.Start()
	if !s.Running() {
		t.Fatalf("stream should still be running")
	}
}

func TestSetSymbolsWhileRunning(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"btcusdt", " ethusdt ", "BTCUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	got := s.Symbols()
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Fatalf("symbols not normalized: %v", got)
	}

	s.Start()
	if err := s.SetSymbols([]string{"SOLUSDT"}); err != ErrRunning {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
	s.Stop()

	if err := s.SetSymbols([]string{"SOLUSDT"}); err != nil {
		t.Fatalf("unexpected error after stop: %v", err)
	}
	if got := s.Symbols(); len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("symbols not replaced: %v", got)
	}
}

func TestStreamIsolatesPanickingCallback(t *testing.T) {
	srv := fakeFeed(t, func(conn *websocket.Conn, _ int) {
		msg := tradeMessage("BTCUSDT", 123, 1)
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := NewPriceStream([]string{"BTCUSDT"}, zerolog.Nop(), WithBaseURL(wsURL(srv)))
	s.AddCallback(func(sig.Tick) { panic("boom") })
	ticks := make(chan sig.Tick, 1)
	s.AddCallback(func(tick sig.Tick) { ticks <- tick })

	s.Start()
	defer s.Stop()

	select {
	case tick := <-ticks:
		if tick.Price != 123 {
			t.Fatalf("unexpected tick: %+v", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("panicking callback starved the next one")
	}
}

func TestEmptySymbolListFallsBackToUniverse(t *testing.T) {
	s := NewPriceStream(nil, zerolog.Nop())
	if len(s.Symbols()) != len(AvailableSymbols) {
		t.Fatalf("expected the full universe, got %v", s.Symbols())
	}
}
