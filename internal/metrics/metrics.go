package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics is the instrumentation surface used by the service layer
type PaymentMetrics interface {
	IncPaymentProcessed(status, currency string)
	IncFraudBlocked()
	IncRefund(refundType string)
	ObservePaymentAmount(amount float64, currency string)
}

type paymentMetrics struct {
	paymentsProcessed *prometheus.CounterVec
	fraudBlocked      prometheus.Counter
	refunds           *prometheus.CounterVec
	paymentAmounts    *prometheus.HistogramVec
}

// NewPaymentMetrics registers payment counters on the given registry
func NewPaymentMetrics(registry *prometheus.Registry) PaymentMetrics {
	return &paymentMetrics{
		paymentsProcessed: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_processed_total",
				Help: "The total number of processed payments by resulting status",
			},
			[]string{"status", "currency"},
		),
		fraudBlocked: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "payments_fraud_blocked_total",
				Help: "The total number of payments rejected by fraud screening",
			},
		),
		refunds: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_refunds_total",
				Help: "The total number of refunds by type",
			},
			[]string{"type"},
		),
		paymentAmounts: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_amount",
				Help:    "Payment total amounts distribution",
				Buckets: prometheus.ExponentialBuckets(10, 10, 5),
			},
			[]string{"currency"},
		),
	}
}

func (m *paymentMetrics) IncPaymentProcessed(status, currency string) {
	m.paymentsProcessed.WithLabelValues(status, currency).Inc()
}

func (m *paymentMetrics) IncFraudBlocked() {
	m.fraudBlocked.Inc()
}

func (m *paymentMetrics) IncRefund(refundType string) {
	m.refunds.WithLabelValues(refundType).Inc()
}

func (m *paymentMetrics) ObservePaymentAmount(amount float64, currency string) {
	m.paymentAmounts.WithLabelValues(currency).Observe(amount)
}

type nopMetrics struct{}

// Nop returns a metrics implementation that records nothing, used in tests
// and in the scheduler binary.
func Nop() PaymentMetrics {
	return nopMetrics{}
}

func (nopMetrics) IncPaymentProcessed(status, currency string)          {}
func (nopMetrics) IncFraudBlocked()                                     {}
func (nopMetrics) IncRefund(refundType string)                          {}
func (nopMetrics) ObservePaymentAmount(amount float64, currency string) {}
