package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay counters and histograms, partitioned by chain where it matters.

var (
	// Submission pipeline
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "submit",
		Name:      "requests_total",
		Help:      "Total submission attempts by outcome",
	}, []string{"chain", "outcome"})

	SubmissionDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relayer",
		Subsystem: "submit",
		Name:      "duration_seconds",
		Help:      "End-to-end submission latency (reserve through commit)",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain"})

	// Nonce allocator
	NoncesReservedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "nonce",
		Name:      "reserved_total",
		Help:      "Total nonce reservations",
	}, []string{"chain"})

	NoncesAbortedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "nonce",
		Name:      "aborted_total",
		Help:      "Total nonce reservations returned for reuse",
	}, []string{"chain"})

	// Inclusion watcher
	WatcherTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "watcher",
		Name:      "ticks_total",
		Help:      "Total watcher poll ticks",
	}, []string{"chain"})

	FeeBumpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "watcher",
		Name:      "fee_bumps_total",
		Help:      "Total fee escalations broadcast",
	}, []string{"chain"})

	RequestsMinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "watcher",
		Name:      "mined_total",
		Help:      "Total requests confirmed past the configured depth",
	}, []string{"chain"})

	RequestsStuckTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "watcher",
		Name:      "stuck_total",
		Help:      "Total requests parked after exhausting escalations",
	}, []string{"chain"})

	PendingRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Subsystem: "watcher",
		Name:      "pending_requests",
		Help:      "Pending requests seen on the most recent tick",
	}, []string{"chain"})

	// Recovery
	RecoveryOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "recovery",
		Name:      "outcomes_total",
		Help:      "Startup reconciliation outcomes by kind",
	}, []string{"chain", "outcome"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by method and status",
	}, []string{"chain", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "RPC calls delayed by the client-side rate limiter",
	}, []string{"chain"})

	BroadcastCircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relayer",
		Subsystem: "rpc",
		Name:      "broadcast_circuit_open",
		Help:      "1 while the broadcast circuit breaker is open",
	}, []string{"chain"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Alerts delivered per channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Alerts suppressed by the cooldown window",
	}, []string{"channel", "type"})

	// Journal
	JournalAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "journal",
		Name:      "appends_total",
		Help:      "Request lifecycle events appended to the journal",
	}, []string{"type", "status"})
)
