package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "farm2home"

// Metrics holds the storefront collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced      prometheus.Counter
	orderValue        prometheus.Histogram
	pointsAwarded     prometheus.Counter
	checkoutFailures  *prometheus.CounterVec
	cartMutations     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ordersPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders successfully placed.",
	})
	m.orderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_value",
		Help:      "Grand total of placed orders in currency units.",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000},
	})
	m.pointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loyalty_points_awarded_total",
		Help:      "Loyalty points credited at order placement.",
	})
	m.checkoutFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Rejected order placements by reason.",
	}, []string{"reason"})
	m.cartMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart operations by kind and outcome.",
	}, []string{"op", "outcome"})
	m.statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes by target status.",
	}, []string{"status"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "method", "code"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.registry.MustRegister(
		m.ordersPlaced,
		m.orderValue,
		m.pointsAwarded,
		m.checkoutFailures,
		m.cartMutations,
		m.statusTransitions,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) OrderPlaced(total decimal.Decimal, points int) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderValue.Observe(total.InexactFloat64())
	m.pointsAwarded.Add(float64(points))
}

func (m *Metrics) CheckoutFailed(reason string) {
	if m == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) CartMutation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cartMutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
