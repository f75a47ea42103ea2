// Package risk holds guard-rails applied before automatic order placement.
package risk

// Limits caps how much notional an automatic trade may take on.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether a trade of the given notional is within limits.
// A zero limit disables the check.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
