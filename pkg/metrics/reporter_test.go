package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReporter_RecordCountsEvents(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	reporter := NewReporter(100, nil, logger)

	for i := 0; i < 42; i++ {
		reporter.Record(time.Millisecond)
	}

	assert.Equal(t, int64(42), reporter.Total())
}

func TestReporter_SampleUpdatesGauges(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	collector := NewCollector(logger)
	reporter := NewReporter(10, collector, logger)

	for i := 0; i < 10; i++ {
		reporter.Record(2 * time.Millisecond)
	}

	// The tenth Record closes the window and publishes a sample.
	throughput := testutil.ToFloat64(collector.SampleThroughput)
	assert.Positive(t, throughput)

	avgLatency := testutil.ToFloat64(collector.SampleAvgLatency)
	assert.InDelta(t, 0.002, avgLatency, 0.0005)
}

func TestReporter_NoSampleBeforeWindowFills(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	collector := NewCollector(logger)
	reporter := NewReporter(100, collector, logger)

	for i := 0; i < 99; i++ {
		reporter.Record(time.Millisecond)
	}

	assert.Zero(t, testutil.ToFloat64(collector.SampleThroughput))
}

func TestReporter_DefaultSampleEvery(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	reporter := NewReporter(0, nil, logger)
	assert.Equal(t, int64(100), reporter.sampleEvery)
}

func TestCollector_CountersRegister(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	collector := NewCollector(logger)

	collector.EventsConsumed.Inc()
	collector.EventsPublished.Inc()
	collector.EventsDropped.WithLabelValues("malformed_payload").Inc()
	collector.EventsDropped.WithLabelValues("filtered_out").Add(3)
	collector.PublishFailures.Inc()
	collector.AggregateKeys.WithLabelValues("users").Set(5)
	collector.DeviceTypeLogins.WithLabelValues("android").Set(7)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.EventsConsumed))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.EventsPublished))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.EventsDropped.WithLabelValues("filtered_out")))
	assert.Equal(t, float64(5), testutil.ToFloat64(collector.AggregateKeys.WithLabelValues("users")))
	assert.Equal(t, float64(7), testutil.ToFloat64(collector.DeviceTypeLogins.WithLabelValues("android")))

	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["loginflow_events_consumed_total"])
	assert.True(t, names["loginflow_events_dropped_total"])
	assert.True(t, names["loginflow_processing_latency_seconds"])
}
