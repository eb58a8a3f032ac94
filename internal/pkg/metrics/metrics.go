// internal/pkg/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the backend's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so services can be built without a registry in tests.
type Metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	orders        *prometheus.CounterVec
	payments      *prometheus.CounterVec
	couponChecks  *prometheus.CounterVec
	deliveryMarks *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Secure orders by outcome.",
		}, []string{"outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "Payment verifications by outcome.",
		}, []string{"outcome"}),
		couponChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coupon_validations_total",
			Help: "Coupon validations by result reason.",
		}, []string{"reason"}),
		deliveryMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_day_updates_total",
			Help: "Delivery day status changes by new status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.requests, m.latency, m.orders, m.payments, m.couponChecks, m.deliveryMarks)
	return m
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// OrderCreated counts a create-secure outcome: created, rejected or failed
func (m *Metrics) OrderCreated(outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// PaymentVerified counts a verification outcome: verified, invalid_signature or failed
func (m *Metrics) PaymentVerified(outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// CouponChecked counts a coupon validation; reason is "ok" on success
func (m *Metrics) CouponChecked(reason string) {
	if m == nil {
		return
	}
	m.couponChecks.WithLabelValues(normalizeLabel(reason)).Inc()
}

// DeliveryMarked counts a delivery day status change
func (m *Metrics) DeliveryMarked(status string) {
	if m == nil {
		return
	}
	m.deliveryMarks.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
