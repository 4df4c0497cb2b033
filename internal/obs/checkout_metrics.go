package obs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

// CheckoutMetrics records scan and session outcomes. It satisfies
// checkout.Observer and checkout.SessionObserver.
type CheckoutMetrics struct {
	Scans        *prometheus.CounterVec
	Bundles      *prometheus.CounterVec
	OpenSessions prometheus.Gauge
	Expired      prometheus.Counter
	FinalTotals  prometheus.Histogram
}

// NewCheckoutMetrics registers and returns checkout collectors.
func NewCheckoutMetrics(namespace string, reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &CheckoutMetrics{
		Scans: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_scans_total",
			Help:      "Count of item scans by outcome.",
		}, []string{"result"})),
		Bundles: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_bundles_total",
			Help:      "Count of completed discount bundles per item.",
		}, []string{"item"})),
		OpenSessions: mustRegister(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_open",
			Help:      "Number of checkout sessions currently open.",
		})),
		Expired: mustRegister(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_expired_total",
			Help:      "Count of sessions evicted after going idle.",
		})),
		FinalTotals: mustRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_final_total",
			Help:      "Distribution of final checkout totals in minor units.",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		})),
	}
}

// Scanned counts a successful scan.
func (m *CheckoutMetrics) Scanned(string, pricing.Money) {
	m.Scans.WithLabelValues("ok").Inc()
}

// Rejected counts a scan of an unknown item. The item name is not used as a
// label since it is caller supplied.
func (m *CheckoutMetrics) Rejected(string) {
	m.Scans.WithLabelValues("unknown_item").Inc()
}

// BundleCompleted counts a completed discount bundle.
func (m *CheckoutMetrics) BundleCompleted(name string) {
	m.Bundles.WithLabelValues(name).Inc()
}

// SessionOpened tracks a newly opened session.
func (m *CheckoutMetrics) SessionOpened() {
	m.OpenSessions.Inc()
}

// SessionClosed tracks a closed session and its final total.
func (m *CheckoutMetrics) SessionClosed(total pricing.Money) {
	m.OpenSessions.Dec()
	m.FinalTotals.Observe(float64(total))
}

// SessionExpired tracks an idle session evicted without a final total.
func (m *CheckoutMetrics) SessionExpired() {
	m.OpenSessions.Dec()
	m.Expired.Inc()
}
