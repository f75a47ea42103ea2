// Package execution handles order placement at the venue boundary.
package execution

import (
	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
)

// Side enumerates order directions used by the executor and the paper ledger.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Order represents a placement request the executor can process.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // 0 for market
}

// Executor implements a logger-backed submitter for orders. Real exchange
// connectivity is an external collaborator; this stub records the attempt.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit logs out the order request and counts it.
func (executor *Executor) Submit(order Order) error {
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	executor.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Msg("submit order (simulated)")
	return nil
}
