package strategy

import sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"

const (
	// historyCap bounds the per-symbol price window kept for inspection.
	historyCap = 100
	// maxConfidence caps how sure a crossover can claim to be.
	maxConfidence = 0.95
)

// CrossoverDetector watches a fast and a slow EMA for one symbol and reports
// the moment the fast average crosses the slow one. Not safe for concurrent
// use; the engine guarantees a single writer per symbol.
type CrossoverDetector struct {
	fast emaState
	slow emaState

	prevFast   float64
	prevSlow   float64
	hasPrev    bool
	prices     []float64
	priceStart int
}

// NewCrossoverDetector builds a detector around fast/slow EMA periods.
func NewCrossoverDetector(fastPeriod, slowPeriod int) *CrossoverDetector {
	return &CrossoverDetector{
		fast:   newEMA(fastPeriod),
		slow:   newEMA(slowPeriod),
		prices: make([]float64, 0, historyCap),
	}
}

// Update folds a price into both averages and returns the crossover action,
// if any, along with a confidence score in [0, 0.95]. The first update can
// never signal because there is no previous pair to compare against.
func (d *CrossoverDetector) Update(price float64) (action sig.Action, confidence float64, ok bool) {
	d.recordPrice(price)

	fast := d.fast.Update(price)
	slow := d.slow.Update(price)

	if d.hasPrev {
		switch {
		case d.prevFast <= d.prevSlow && fast > slow && slow != 0:
			action = sig.ActionBuy
			confidence = clamp((fast-slow)/slow*10, 0, maxConfidence)
			ok = true
		case d.prevFast >= d.prevSlow && fast < slow && fast != 0:
			action = sig.ActionSell
			confidence = clamp((slow-fast)/fast*10, 0, maxConfidence)
			ok = true
		}
	}

	d.prevFast = fast
	d.prevSlow = slow
	d.hasPrev = true
	return action, confidence, ok
}

// RecentPrices returns the bounded price history, oldest first.
func (d *CrossoverDetector) RecentPrices() []float64 {
	out := make([]float64, 0, len(d.prices))
	out = append(out, d.prices[d.priceStart:]...)
	out = append(out, d.prices[:d.priceStart]...)
	return out
}

func (d *CrossoverDetector) recordPrice(price float64) {
	if len(d.prices) < historyCap {
		d.prices = append(d.prices, price)
		return
	}
	// ring buffer past capacity: overwrite the oldest entry
	d.prices[d.priceStart] = price
	d.priceStart = (d.priceStart + 1) % historyCap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
