package learning

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/paper"
)

const defaultQueueSize = 64

// Reporter turns terminal positions into learning reports on a supervised
// worker goroutine. Enqueue never blocks and failures never surface to the
// ledger operation that produced the position.
type Reporter struct {
	log   zerolog.Logger
	store *Store
	queue chan job
	wg    sync.WaitGroup
	once  sync.Once
}

type job struct {
	userID   string
	position paper.Position
}

// NewReporter starts the background worker.
func NewReporter(store *Store, log zerolog.Logger) *Reporter {
	r := &Reporter{
		log:   log,
		store: store,
		queue: make(chan job, defaultQueueSize),
	}
	r.wg.Add(1)
	go r.work()
	return r
}

// Enqueue schedules report generation for a finished position. If the queue
// is full the job is dropped with a log line; the close operation is never
// blocked on report work.
func (r *Reporter) Enqueue(userID string, position paper.Position) {
	select {
	case r.queue <- job{userID: userID, position: position}:
	default:
		r.log.Warn().Str("position_id", position.ID).Msg("report queue full, dropping")
	}
}

// Close drains the queue and stops the worker.
func (r *Reporter) Close() {
	r.once.Do(func() { close(r.queue) })
	r.wg.Wait()
}

func (r *Reporter) work() {
	defer r.wg.Done()
	for j := range r.queue {
		report := buildReport(j.userID, j.position)
		if err := r.store.Save(report); err != nil {
			r.log.Error().Err(err).Str("position_id", j.position.ID).Msg("failed to save learning report")
			continue
		}
		r.log.Debug().Str("position_id", j.position.ID).Msg("learning report saved")
	}
}

func buildReport(userID string, position paper.Position) Report {
	report := Report{
		PositionID:  position.ID,
		UserID:      userID,
		Symbol:      position.Symbol,
		Side:        string(position.Side),
		Notional:    position.Notional,
		Leverage:    position.Leverage,
		Margin:      position.Margin,
		EntryPrice:  position.EntryPrice,
		Status:      string(position.Status),
		PnL:         position.PnL,
		PnLPct:      position.PnLPct,
		OpenedAt:    position.OpenedAt,
		ClosedAt:    position.ClosedAt,
		GeneratedAt: time.Now().UTC(),
	}

	held := position.ClosedAt.Sub(position.OpenedAt)
	switch {
	case position.Status == paper.PositionLiquidated:
		report.Insights = append(report.Insights, "position was liquidated; full margin lost")
		report.Suggestions = append(report.Suggestions, "reduce leverage or size to widen the liquidation buffer")
	case position.PnL > 0:
		report.Insights = append(report.Insights, fmt.Sprintf("winning trade: +%.2f USDT (%.1f%%) over %s", position.PnL, position.PnLPct, held.Round(time.Second)))
	case position.PnL < 0:
		report.Insights = append(report.Insights, fmt.Sprintf("losing trade: %.2f USDT (%.1f%%) over %s", position.PnL, position.PnLPct, held.Round(time.Second)))
	default:
		report.Insights = append(report.Insights, "flat trade: exit at entry price")
	}
	if position.Leverage > 3 {
		report.Suggestions = append(report.Suggestions, "high leverage amplifies both outcomes; confirm trend on a slower timeframe")
	}
	return report
}
