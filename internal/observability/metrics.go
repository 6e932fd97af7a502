// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Connection metrics
	WalletConnects  *prometheus.CounterVec
	NetworkStatus   *prometheus.GaugeVec
	NetworkSwitches *prometheus.CounterVec

	// Ledger metrics
	LedgerSyncs        *prometheus.CounterVec
	LedgerSyncDuration prometheus.Histogram
	CandidatesTracked  prometheus.Gauge
	CandidateVotes     *prometheus.GaugeVec

	// Vote metrics
	VotesSubmitted     *prometheus.CounterVec
	VoteSettleDuration *prometheus.HistogramVec
	VotesPending       prometheus.Gauge

	// Transport metrics
	RPCCallLatency *prometheus.HistogramVec
	WSLogsReceived *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSync prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voter"
	}

	return &Metrics{
		WalletConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "wallet_connects_total",
			Help:      "Total number of wallet connection attempts by result",
		}, []string{"mode", "result"}),
		NetworkStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "status",
			Help:      "Current network status (1 for the active status)",
		}, []string{"status"}),
		NetworkSwitches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "switch_requests_total",
			Help:      "Total number of network switch requests by result",
		}, []string{"result"}),

		LedgerSyncs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "syncs_total",
			Help:      "Total number of candidate list synchronizations by status",
		}, []string{"status"}),
		LedgerSyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sync_duration_seconds",
			Help:      "Candidate list synchronization duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CandidatesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "candidates",
			Help:      "Number of candidates in the last published list",
		}),
		CandidateVotes: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "candidate_votes",
			Help:      "Vote count per candidate in the last published list",
		}, []string{"candidate_id"}),

		VotesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vote",
			Name:      "settled_total",
			Help:      "Total number of settled vote attempts by outcome",
		}, []string{"outcome"}),
		VoteSettleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vote",
			Name:      "settle_duration_seconds",
			Help:      "Time from submission to settlement in seconds",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		VotesPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vote",
			Name:      "pending",
			Help:      "Number of vote attempts awaiting settlement",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSLogsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "ws_logs_received_total",
			Help:      "Total number of contract logs received over WebSocket by event",
		}, []string{"event"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last successful candidate list synchronization",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWalletConnect records a wallet connection attempt.
// mode is "interactive" or "silent".
func RecordWalletConnect(mode, result string) {
	DefaultMetrics.WalletConnects.WithLabelValues(mode, result).Inc()
}

// SetNetworkStatus marks status as the active network status.
func SetNetworkStatus(status string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		DefaultMetrics.NetworkStatus.WithLabelValues(s).Set(v)
	}
}

// RecordNetworkSwitch records a network switch request.
func RecordNetworkSwitch(result string) {
	DefaultMetrics.NetworkSwitches.WithLabelValues(result).Inc()
}

// RecordLedgerSync records a candidate list synchronization.
func RecordLedgerSync(status string, seconds float64) {
	DefaultMetrics.LedgerSyncs.WithLabelValues(status).Inc()
	DefaultMetrics.LedgerSyncDuration.Observe(seconds)
}

// UpdateTallies publishes the last known candidate list.
func UpdateTallies(votes map[string]uint64, unixTime int64) {
	DefaultMetrics.CandidatesTracked.Set(float64(len(votes)))
	for id, count := range votes {
		DefaultMetrics.CandidateVotes.WithLabelValues(id).Set(float64(count))
	}
	DefaultMetrics.LastSuccessfulSync.Set(float64(unixTime))
}

// RecordVoteSettled records a settled vote attempt.
func RecordVoteSettled(outcome string, seconds float64) {
	DefaultMetrics.VotesSubmitted.WithLabelValues(outcome).Inc()
	DefaultMetrics.VoteSettleDuration.WithLabelValues(outcome).Observe(seconds)
}

// UpdatePendingVotes sets the number of in-flight vote attempts.
func UpdatePendingVotes(n int) {
	DefaultMetrics.VotesPending.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSLog records a contract log received over WebSocket.
func RecordWSLog(event string) {
	DefaultMetrics.WSLogsReceived.WithLabelValues(event).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
