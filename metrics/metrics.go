package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls counts dispatched tool calls by outcome (found, not_found, invalid, error)
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crosswalk_tool_calls_total",
			Help: "Total number of tool calls by outcome",
		},
		[]string{"tool", "outcome"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crosswalk_tool_call_duration_seconds",
			Help:    "Time taken to answer a tool call",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"tool"},
	)

	// StoreFailures counts read-path faults that were degraded to empty results
	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crosswalk_store_failures_total",
			Help: "Total number of store read failures degraded to empty results",
		},
		[]string{"operation"},
	)

	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crosswalk_records_ingested_total",
			Help: "Total number of dataset records written by ingestion",
		},
		[]string{"entity"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crosswalk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// SQLite connection pool metrics, labelled by pool ("read" or "write")
var (
	SQLitePoolOpenConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crosswalk_sqlite_pool_open_connections",
			Help: "Number of established connections in the SQLite pool",
		},
		[]string{"pool"},
	)

	SQLitePoolInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crosswalk_sqlite_pool_in_use",
			Help: "Number of SQLite connections currently in use",
		},
		[]string{"pool"},
	)

	SQLitePoolIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crosswalk_sqlite_pool_idle",
			Help: "Number of idle SQLite connections",
		},
		[]string{"pool"},
	)

	SQLitePoolWaitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crosswalk_sqlite_pool_wait_count_total",
			Help: "Total number of connections waited for",
		},
		[]string{"pool"},
	)
)
