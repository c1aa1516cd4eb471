package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	assert.NotNil(t, ToolCalls)
	assert.NotNil(t, ToolDuration)
	assert.NotNil(t, StoreFailures)
	assert.NotNil(t, RecordsIngested)
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, SQLitePoolOpenConnections)
	assert.NotNil(t, SQLitePoolInUse)
	assert.NotNil(t, SQLitePoolIdle)
	assert.NotNil(t, SQLitePoolWaitCount)
}

func TestStoreFailuresCounter(t *testing.T) {
	before := testutil.ToFloat64(StoreFailures.WithLabelValues("metrics_test"))
	StoreFailures.WithLabelValues("metrics_test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StoreFailures.WithLabelValues("metrics_test")))
}

func TestToolCallsLabels(t *testing.T) {
	ToolCalls.WithLabelValues("search_requirements", "found").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ToolCalls.WithLabelValues("search_requirements", "found")), 1.0)
}
