// Package strategy contains the EMA crossover signal generation wired into ticks.
package strategy

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
)

const (
	// StrategyName tags every signal emitted by the engine.
	StrategyName = "ema_9_21"

	defaultFastPeriod = 9
	defaultSlowPeriod = 21

	// executeThreshold is the minimum confidence for auto execution.
	executeThreshold = 0.5
	// executeAmount is the fixed base-asset amount for auto trades.
	executeAmount = 0.001
)

// Engine routes price updates to one lazily created crossover detector per
// symbol and wraps detector hits into signals. Safe for concurrent use across
// symbols; updates for a single symbol are serialized by the internal lock.
type Engine struct {
	log        zerolog.Logger
	fastPeriod int
	slowPeriod int

	mu        sync.Mutex
	detectors map[string]*CrossoverDetector
}

// NewEngine constructs an engine using the default 9/21 EMA periods.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log:        log,
		fastPeriod: defaultFastPeriod,
		slowPeriod: defaultSlowPeriod,
		detectors:  make(map[string]*CrossoverDetector),
	}
}

// ProcessPrice feeds a price into the symbol's detector and returns a signal
// when a crossover occurred, nil otherwise.
func (e *Engine) ProcessPrice(symbol string, price float64) *sig.Signal {
	e.mu.Lock()
	detector := e.detectors[symbol]
	if detector == nil {
		detector = NewCrossoverDetector(e.fastPeriod, e.slowPeriod)
		e.detectors[symbol] = detector
	}
	action, confidence, ok := detector.Update(price)
	e.mu.Unlock()

	if !ok {
		return nil
	}

	metrics.SignalsTotal.WithLabelValues(symbol, string(action)).Inc()
	e.log.Info().
		Str("symbol", symbol).
		Str("action", string(action)).
		Float64("confidence", confidence).
		Msg("crossover signal detected")

	return &sig.Signal{
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		Strategy:   StrategyName,
		Ts:         time.Now().UTC(),
	}
}

// ActiveDetectors reports how many symbols have seen at least one tick.
func (e *Engine) ActiveDetectors() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.detectors)
}

// Decision captures whether a signal is strong enough to act on.
type Decision struct {
	ShouldExecute bool
	Reason        string
	Amount        float64
}

// Evaluate decides whether a signal warrants an automatic order.
func (e *Engine) Evaluate(s *sig.Signal) Decision {
	if s.Confidence >= executeThreshold {
		return Decision{ShouldExecute: true, Reason: "ema_crossover_confirmed", Amount: executeAmount}
	}
	return Decision{ShouldExecute: false, Reason: "low_confidence"}
}
