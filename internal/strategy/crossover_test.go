package strategy

import (
	"testing"

	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
)

func feed(t *testing.T, d *CrossoverDetector, prices []float64) (buys, sells int, lastConf float64) {
	t.Helper()
	for _, price := range prices {
		action, confidence, ok := d.Update(price)
		if !ok {
			continue
		}
		if confidence < 0 || confidence > 0.95 {
			t.Fatalf("confidence out of range: %.4f", confidence)
		}
		lastConf = confidence
		switch action {
		case sig.ActionBuy:
			buys++
		case sig.ActionSell:
			sells++
		}
	}
	return buys, sells, lastConf
}

func TestCrossoverNoSignalOnFirstUpdates(t *testing.T) {
	d := NewCrossoverDetector(9, 21)
	if _, _, ok := d.Update(100); ok {
		t.Fatalf("first update must not signal")
	}
	if _, _, ok := d.Update(100); ok {
		t.Fatalf("flat second update must not signal")
	}
}

func TestCrossoverRiseThenFall(t *testing.T) {
	d := NewCrossoverDetector(9, 21)

	// warm both averages down so the fast EMA starts below the slow one
	down := make([]float64, 30)
	for i := range down {
		down[i] = 200 - float64(i)*2
	}
	up := make([]float64, 40)
	for i := range up {
		up[i] = 140 + float64(i)*3
	}
	fall := make([]float64, 40)
	for i := range fall {
		fall[i] = 260 - float64(i)*3
	}

	feed(t, d, down)
	buys, sells, _ := feed(t, d, up)
	if buys != 1 {
		t.Fatalf("expected exactly one BUY on the rising segment, got %d", buys)
	}
	if sells != 0 {
		t.Fatalf("unexpected SELL on rising segment")
	}

	buys, sells, _ = feed(t, d, fall)
	if sells != 1 {
		t.Fatalf("expected exactly one SELL on the falling segment, got %d", sells)
	}
	if buys != 0 {
		t.Fatalf("unexpected BUY on falling segment")
	}
}

func TestCrossoverConfidenceClamped(t *testing.T) {
	d := NewCrossoverDetector(2, 50)
	warm := make([]float64, 60)
	for i := range warm {
		warm[i] = 100 - float64(i)
	}
	feed(t, d, warm)

	// violent reversal: raw (fast-slow)/slow*10 blows past the cap
	_, _, conf := feed(t, d, []float64{500, 900, 1500})
	if conf > 0.95 {
		t.Fatalf("confidence above cap: %.4f", conf)
	}
}

func TestCrossoverZeroGuard(t *testing.T) {
	d := NewCrossoverDetector(9, 21)
	// all-zero prices keep both EMAs at zero; must never divide by zero
	for i := 0; i < 10; i++ {
		if _, _, ok := d.Update(0); ok {
			t.Fatalf("zero-price series must not signal")
		}
	}
}

func TestRecentPricesBounded(t *testing.T) {
	d := NewCrossoverDetector(9, 21)
	for i := 0; i < 250; i++ {
		d.Update(float64(i))
	}
	got := d.RecentPrices()
	if len(got) != historyCap {
		t.Fatalf("expected %d retained prices, got %d", historyCap, len(got))
	}
	if got[0] != 150 || got[len(got)-1] != 249 {
		t.Fatalf("expected window [150..249], got [%v..%v]", got[0], got[len(got)-1])
	}
}
