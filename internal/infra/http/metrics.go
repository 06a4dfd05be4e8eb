package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry        *prometheus.Registry
	verifications   *prometheus.CounterVec
	issuances       *prometheus.CounterVec
	keyLoadFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receiptd_verifications_total",
				Help: "Receipt verifications by endpoint and resulting status.",
			},
			[]string{"endpoint", "status"},
		),
		issuances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receiptd_issuances_total",
				Help: "Receipt issuances by flavour and result.",
			},
			[]string{"flavour", "result"},
		),
		keyLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptd_key_load_failures_total",
			Help: "Failed attempts to load receipt key material.",
		}),
	}
	m.registry.MustRegister(m.verifications, m.issuances, m.keyLoadFailures)
	return m
}

func (m *Metrics) ObserveVerification(endpoint, status string) {
	m.verifications.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) ObserveIssuance(flavour, result string) {
	m.issuances.WithLabelValues(flavour, result).Inc()
}

// KeyLoadFailed matches the key manager's failure hook.
func (m *Metrics) KeyLoadFailed(error) {
	m.keyLoadFailures.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
