package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdecades/newsdecades/internal/observability"
)

// Recording without an initialized telemetry system must be a no-op.
func TestRecordWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	RecordQuery("")
	RecordQuery("upstream")
	RecordCache(true)
	RecordCache(false)
	RecordUpstreamFetch(200, 15*time.Millisecond)
	RecordUpstreamFetch(0, time.Second)
	RecordHealthCheck("store", "unhealthy", time.Millisecond)
	SetServerStartTime(time.Now().Unix())
	RecordError("NOT_FOUND", 404, "")
	RecordPanic()
}

func TestRecordersEmit(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	RecordQuery("")
	RecordQuery(OutcomeNoData)
	RecordCache(true)
	RecordUpstreamFetch(0, time.Millisecond)
	RecordHealthCheck("cache_store", "healthy", time.Millisecond)
	RecordError("NOT_FOUND", 404, "/")
	RecordPanic()

	assert.EqualValues(t, 2, collector.CountMetricsByName(QueriesTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(CacheTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(UpstreamFetchTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(UpstreamFetchDuration))
	assert.EqualValues(t, 1, collector.CountMetricsByName(HealthCheckTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(ErrorsTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(PanicsTotal))
}

func TestUpstreamStatusLabel(t *testing.T) {
	assert.Equal(t, "transport_error", upstreamStatusLabel(0))
	assert.Equal(t, "404", upstreamStatusLabel(404))
}
