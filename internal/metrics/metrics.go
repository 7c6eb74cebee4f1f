package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Requests          *prometheus.CounterVec
	Latency           *prometheus.HistogramVec
	OrdersPlaced      prometheus.Counter
	InsufficientStock prometheus.Counter
}

func New() *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_placed_total",
		Help:      "Total number of successfully placed orders.",
	})

	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "insufficient_stock_total",
		Help:      "Total number of operations rejected for insufficient stock.",
	})

	prometheus.MustRegister(requests, latency, ordersPlaced, insufficientStock)

	return &Metrics{
		Requests:          requests,
		Latency:           latency,
		OrdersPlaced:      ordersPlaced,
		InsufficientStock: insufficientStock,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		m.Latency.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
