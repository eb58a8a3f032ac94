package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.ObserveRequest("/api/products", "GET", 200, 15*time.Millisecond)
	m.ObserveRequest("/api/products", "GET", 200, 5*time.Millisecond)
	m.OrderCreated("created")
	m.PaymentVerified("invalid_signature")
	m.CouponChecked("")
	m.DeliveryMarked("delivered")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/products", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("invalid_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.couponChecks.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveryMarks.WithLabelValues("delivered")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.Nil(t, New(nil))
	assert.NotPanics(t, func() {
		m.ObserveRequest("", "GET", 500, time.Second)
		m.OrderCreated("failed")
		m.PaymentVerified("verified")
		m.CouponChecked("ok")
		m.DeliveryMarked("pending")
	})
}
