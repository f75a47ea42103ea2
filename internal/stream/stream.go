// Package stream maintains a multiplexed websocket subscription to a market
// data source and fans parsed price ticks out to registered callbacks.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
)

// AvailableSymbols is the fixed universe of pairs the stream can monitor.
var AvailableSymbols = []string{
	"BTCUSDT",
	"ETHUSDT",
	"BNBUSDT",
	"SOLUSDT",
	"XRPUSDT",
	"ADAUSDT",
	"DOGEUSDT",
	"MATICUSDT",
	"DOTUSDT",
	"LTCUSDT",
}

const (
	defaultBaseURL = "wss://stream.binance.com:9443"
	defaultBackoff = 5 * time.Second
)

// ErrRunning is returned when the monitored symbol set is mutated while the
// stream is live; reconfiguration requires an explicit stop first.
var ErrRunning = errors.New("stream is running; stop before reconfiguring")

// Callback receives every parsed tick in registration order.
type Callback func(t sig.Tick)

// Option configures PriceStream construction parameters.
type Option func(*PriceStream)

// WithBaseURL overrides the websocket endpoint base (used by tests).
func WithBaseURL(base string) Option {
	return func(s *PriceStream) {
		if base != "" {
			s.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithBackoff overrides the fixed reconnect delay.
func WithBackoff(d time.Duration) Option {
	return func(s *PriceStream) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// PriceStream owns one logical connection covering the configured symbol set.
// It recovers from disconnects with a fixed backoff and keeps callbacks
// subscribed across reconnects. Start and Stop are idempotent.
type PriceStream struct {
	log     zerolog.Logger
	baseURL string
	backoff time.Duration

	mu         sync.Mutex
	symbols    []string
	callbacks  []Callback
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastPrices map[string]float64
}

// NewPriceStream constructs a stream for the given symbols; an empty list
// falls back to the full available universe.
func NewPriceStream(symbols []string, log zerolog.Logger, opts ...Option) *PriceStream {
	s := &PriceStream{
		log:        log,
		baseURL:    defaultBaseURL,
		backoff:    defaultBackoff,
		lastPrices: make(map[string]float64),
	}
	if len(symbols) == 0 {
		symbols = AvailableSymbols
	}
	s.symbols = normalizeSymbols(symbols)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeSymbols(symbols []string) []string {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for sym := range unique {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// AddCallback registers a tick consumer. Callbacks are invoked synchronously
// in registration order; a failing callback is isolated and skipped.
func (s *PriceStream) AddCallback(cb Callback) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.mu.Unlock()
}

// Symbols returns the configured symbol set.
func (s *PriceStream) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// SetSymbols replaces the monitored set. The stream must be stopped first.
func (s *PriceStream) SetSymbols(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	s.symbols = normalizeSymbols(symbols)
	return nil
}

// Running reports whether the receive loop is live.
func (s *PriceStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastPrice returns the most recent traded price seen for a symbol.
func (s *PriceStream) LastPrice(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.lastPrices[strings.ToUpper(symbol)]
	return price, ok
}

// LastPrices snapshots the per-symbol mark prices collected so far.
func (s *PriceStream) LastPrices() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.lastPrices))
	for sym, price := range s.lastPrices {
		out[sym] = price
	}
	return out
}

func (s *PriceStream) endpoint() string {
	s.mu.Lock()
	symbols := make([]string, len(s.symbols))
	copy(symbols, s.symbols)
	s.mu.Unlock()

	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))
}

// Start launches the supervised receive loop. Starting a running stream is a
// logged no-op.
func (s *PriceStream) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("price stream already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
	s.log.Info().Strs("symbols", s.Symbols()).Msg("price stream started")
}

// Stop signals the loop to exit and blocks until it has fully unwound. No
// callback fires after Stop returns. Safe to call repeatedly.
func (s *PriceStream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info().Msg("price stream stopped")
}

func (s *PriceStream) run(ctx context.Context) {
	defer close(s.done)
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		metrics.StreamReconnects.Inc()
		s.log.Warn().Err(err).Dur("backoff", s.backoff).Msg("stream dropped, reconnecting")
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return
		}
	}
}

// tradeEnvelope mirrors the combined-stream message shape:
// {"stream":"btcusdt@trade","data":{"s":"BTCUSDT","p":"97000.10","T":...}}.
type tradeEnvelope struct {
	Stream string     `json:"stream"`
	Data   tradeEvent `json:"data"`
}

type tradeEvent struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

func (s *PriceStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// unblock ReadMessage when a stop is requested
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watcherDone:
		}
	}()

	s.log.Info().Msg("connected to market data stream")
	conn.SetReadLimit(1 << 20)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env tradeEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Debug().Err(err).Msg("skipping malformed stream message")
			continue
		}
		symbol := strings.ToUpper(env.Data.Symbol)
		if symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(env.Data.Price, 64)
		if err != nil || price <= 0 {
			s.log.Debug().Str("symbol", symbol).Msg("skipping tick with invalid price")
			continue
		}

		ts := time.UnixMilli(env.Data.TradeTime)
		if env.Data.TradeTime == 0 {
			ts = time.Now().UTC()
		}
		tick := sig.Tick{Symbol: symbol, Price: price, Ts: ts}

		s.mu.Lock()
		s.lastPrices[symbol] = price
		callbacks := make([]Callback, len(s.callbacks))
		copy(callbacks, s.callbacks)
		s.mu.Unlock()

		metrics.TicksTotal.WithLabelValues(symbol).Inc()
		for _, cb := range callbacks {
			s.dispatch(cb, tick)
		}
	}
}

// dispatch isolates a single callback so one failure cannot abort the
// receive loop or starve the remaining callbacks.
func (s *PriceStream) dispatch(cb Callback, tick sig.Tick) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("symbol", tick.Symbol).Msg("tick callback panicked")
		}
	}()
	cb(tick)
}
