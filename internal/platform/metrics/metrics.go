package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	// Access decisions
	Decisions      *prometheus.CounterVec
	DecisionDenied *prometheus.CounterVec
	EnforceLatency prometheus.Histogram

	// Consent lifecycle
	ConsentsGranted  prometheus.Counter
	ConsentsRevoked  prometheus.Counter
	RequestsCreated  prometheus.Counter
	RequestsReviewed *prometheus.CounterVec

	// Audit trail
	AuditAppends       prometheus.Counter
	AuditAppendRetries prometheus.Counter
	AuditAppendFailed  prometheus.Counter

	// Emergency shares
	SharesCreated     prometheus.Counter
	ShareRedemptions  *prometheus.CounterVec
	ActiveShares      prometheus.Gauge
	RedeemScanCandidates prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curanet_access_decisions_total",
			Help: "Total access decisions, labeled by outcome and action",
		}, []string{"outcome", "action"}),
		DecisionDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curanet_access_denials_total",
			Help: "Total access denials, labeled by reason",
		}, []string{"reason"}),
		EnforceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "curanet_enforce_latency_seconds",
			Help:    "Latency of AccessGate enforce calls including the audit write",
			Buckets: prometheus.DefBuckets,
		}),
		ConsentsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_consents_granted_total",
			Help: "Total consents granted (direct grants and approved requests)",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_consents_revoked_total",
			Help: "Total consents revoked by patients",
		}),
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_consent_requests_created_total",
			Help: "Total consent requests created by providers",
		}),
		RequestsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curanet_consent_requests_reviewed_total",
			Help: "Total consent requests reviewed, labeled by outcome",
		}, []string{"outcome"}),
		AuditAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_audit_appends_total",
			Help: "Total audit entries appended",
		}),
		AuditAppendRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_audit_append_retries_total",
			Help: "Total audit append retries after transient store failures",
		}),
		AuditAppendFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_audit_append_failures_total",
			Help: "Total audit appends that exhausted retries",
		}),
		SharesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curanet_emergency_shares_created_total",
			Help: "Total emergency shares created",
		}),
		ShareRedemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curanet_emergency_redemptions_total",
			Help: "Total emergency redemption attempts, labeled by outcome",
		}, []string{"outcome"}),
		ActiveShares: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "curanet_emergency_shares_active",
			Help: "Current number of unused, unexpired emergency shares",
		}),
		RedeemScanCandidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "curanet_emergency_redeem_scan_candidates",
			Help:    "Candidate shares scanned per redemption attempt",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

// ObserveEnforceLatency records the duration of one enforce call.
func (m *Metrics) ObserveEnforceLatency(d time.Duration) {
	m.EnforceLatency.Observe(d.Seconds())
}

// IncrementDecision records one decision outcome.
func (m *Metrics) IncrementDecision(outcome, action string) {
	m.Decisions.WithLabelValues(outcome, action).Inc()
}

// IncrementDenial records one denial by reason code.
func (m *Metrics) IncrementDenial(reason string) {
	m.DecisionDenied.WithLabelValues(reason).Inc()
}
