package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	overridesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "override_tokens_issued_total",
		Help: "Emergency override tokens issued.",
	})

	overridesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "override_tokens_consumed_total",
			Help: "Emergency override consumption attempts by outcome.",
		},
		[]string{"outcome"}, // granted, not_found, expired, already_used
	)

	auditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit ledger writes that failed and were dropped.",
	})
)

// Init registers the metrics in the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(overridesIssued, overridesConsumed, auditWriteFailures)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// OverrideIssued records a newly issued override token.
func OverrideIssued() {
	overridesIssued.Inc()
}

// OverrideConsumed records a consumption attempt with its outcome label.
func OverrideConsumed(outcome string) {
	overridesConsumed.WithLabelValues(outcome).Inc()
}

// AuditWriteFailed records a dropped audit entry. Silent total loss of the
// ledger is a defect; this counter is how operators see the gaps.
func AuditWriteFailed() {
	auditWriteFailures.Inc()
}
