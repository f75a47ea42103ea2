package strategy

// emaState holds an incremental exponential moving average with a fixed period.
// Not safe for concurrent use; callers serialize updates per instance.
type emaState struct {
	period     int
	multiplier float64
	value      float64
	seeded     bool
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period:     period,
		multiplier: 2.0 / (float64(period) + 1),
	}
}

// Update folds a price into the average and returns the new value.
// The first price seeds the average directly.
func (e *emaState) Update(price float64) float64 {
	if !e.seeded {
		e.value = price
		e.seeded = true
		return e.value
	}
	e.value = (price-e.value)*e.multiplier + e.value
	return e.value
}

func (e *emaState) Value() float64 { return e.value }
