package notify

import (
	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
)

// Notifier delivers a trade alert to a set of devices. Implementations are
// opaque collaborators; the core never depends on their internals.
type Notifier interface {
	SendTradeAlert(devices []Device, s *sig.Signal) error
}

// LogNotifier records alert deliveries through the logger; it stands in for
// a real push gateway during development and tests.
type LogNotifier struct{ log zerolog.Logger }

// NewLogNotifier wraps a zerolog logger for alert deliveries.
func NewLogNotifier(log zerolog.Logger) *LogNotifier { return &LogNotifier{log: log} }

// SendTradeAlert logs one delivery per device and counts it.
func (n *LogNotifier) SendTradeAlert(devices []Device, s *sig.Signal) error {
	for _, device := range devices {
		metrics.PushesTotal.WithLabelValues(device.Platform).Inc()
		n.log.Info().
			Str("platform", device.Platform).
			Str("symbol", s.Symbol).
			Str("action", string(s.Action)).
			Float64("confidence", s.Confidence).
			Msg("push trade alert (simulated)")
	}
	return nil
}
