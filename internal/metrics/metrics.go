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
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Window evaluations by trend classification"},
		[]string{"symbol", "trend"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_failures_total", Help: "Order submissions that failed or were rejected"},
		[]string{"symbol"},
	)
	WindowSlope = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "window_slope", Help: "Latest least-squares slope over the price window"},
		[]string{"symbol"},
	)
	WindowVariance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "window_variance", Help: "Latest population variance over the price window"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, DecisionsTotal, OrdersTotal, OrderFailuresTotal, WindowSlope, WindowVariance)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
