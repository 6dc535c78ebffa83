package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, reader
}

// collectMetrics returns the collected aggregations keyed by instrument name
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// intValue returns the value of the data point carrying exactly attrs
func intValue(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	want := attribute.NewSet(attrs...)
	switch agg := data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range agg.DataPoints {
			if dp.Attributes.Equals(&want) {
				return dp.Value
			}
		}
	case metricdata.Gauge[int64]:
		for _, dp := range agg.DataPoints {
			if dp.Attributes.Equals(&want) {
				return dp.Value
			}
		}
	default:
		t.Fatalf("unexpected aggregation %T", data)
	}
	t.Fatalf("no data point with attributes %v", want.ToSlice())
	return 0
}

// histogramCount returns the number of recorded values
func histogramCount(t *testing.T, data metricdata.Aggregation) uint64 {
	agg, ok := data.(metricdata.Histogram[float64])
	require.True(t, ok, "unexpected aggregation %T", data)
	var n uint64
	for _, dp := range agg.DataPoints {
		n += dp.Count
	}
	return n
}
