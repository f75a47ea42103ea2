package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Crossover signals emitted"},
		[]string{"symbol", "action"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_trades_total", Help: "Paper trades executed"},
		[]string{"symbol", "side"},
	)
	PositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_positions_total", Help: "Paper position lifecycle events"},
		[]string{"symbol", "event"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	StreamReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stream_reconnects_total", Help: "Price stream reconnect attempts"},
	)
	PushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pushes_total", Help: "Push notifications dispatched"},
		[]string{"platform"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		SignalsTotal,
		TradesTotal,
		PositionsTotal,
		OrdersTotal,
		StreamReconnects,
		PushesTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
