// Package signal standardizes payloads shared between data ingestion and strategy layers.
package signal

import "time"

// Tick models a single traded price observed on the wire. Ticks are ephemeral:
// consumed once by every registered stream callback and never persisted.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// Action enumerates the direction of a trading signal.
type Action string

const (
	// ActionBuy marks an upward crossover (golden cross).
	ActionBuy Action = "BUY"
	// ActionSell marks a downward crossover (death cross).
	ActionSell Action = "SELL"
)

// Signal expresses a directional trading bias produced by a strategy implementation.
// Immutable once emitted; delivered to downstream consumers at most once per crossover.
type Signal struct {
	Symbol     string
	Action     Action
	Confidence float64 // in [0, 0.95]
	Strategy   string
	Ts         time.Time
}
