package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Posting metrics
	PostingsPosted   prometheus.Counter
	PostingsRejected *prometheus.CounterVec
	PostingsReplayed prometheus.Counter
	PostingDuration  prometheus.Histogram
	LockTimeouts     prometheus.Counter

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// Audit metrics
	AuditRecords      *prometheus.CounterVec
	AuditChainLength  prometheus.Gauge
	ChainVerifyErrors prometheus.Counter

	// Reconciliation metrics
	ReconciliationRuns    prometheus.Counter
	ReconciliationDrift   prometheus.Gauge
	ReconciliationRecords prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates metrics registered on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates metrics registered on reg. Tests pass a fresh registry so
// parallel instances never collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PostingsPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_postings_posted_total",
			Help: "Total number of transactions posted",
		}),
		PostingsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerd_postings_rejected_total",
				Help: "Total number of postings rejected, by reason",
			},
			[]string{"reason"},
		),
		PostingsReplayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_postings_replayed_total",
			Help: "Total number of idempotent replays served",
		}),
		PostingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerd_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		LockTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_lock_timeouts_total",
			Help: "Total number of postings aborted waiting for account locks",
		}),

		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerd_account_operations_total",
				Help: "Total account lifecycle operations by type",
			},
			[]string{"operation"},
		),

		AuditRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerd_audit_records_total",
				Help: "Total audit records appended, by kind",
			},
			[]string{"kind"},
		),
		AuditChainLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerd_audit_chain_length",
			Help: "Sequence number of the audit chain head",
		}),
		ChainVerifyErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_audit_chain_verify_errors_total",
			Help: "Total audit chain verification failures",
		}),

		ReconciliationRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_reconciliation_runs_total",
			Help: "Total reconciliation passes",
		}),
		ReconciliationDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerd_reconciliation_drift_accounts",
			Help: "Accounts with drift found by the last reconciliation pass",
		}),
		ReconciliationRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerd_reconciliation_records_replayed_total",
			Help: "Total audit records replayed by reconciliation",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerd_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerd_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
