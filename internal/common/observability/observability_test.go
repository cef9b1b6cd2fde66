package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_RecordsJobs(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	o := newWithProviders("test", mp, tp)
	ctx, span := o.StartSpan(context.Background(), "check-loan-eligibility", 42)
	o.RecordJobProcessed(ctx, "check-loan-eligibility", "completed")
	o.RecordJobDuration(ctx, "check-loan-eligibility", 15*time.Millisecond, "completed")
	span.End()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["jobs.processed"])
	assert.True(t, names["jobs.duration"])

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "check-loan-eligibility", ended[0].Name())

	require.NoError(t, o.Shutdown(context.Background()))
}

func TestObservability_NilIsSafe(t *testing.T) {
	var o *Observability
	ctx, span := o.StartSpan(context.Background(), "x", 1)
	assert.NotNil(t, ctx)
	span.End()
	o.RecordJobProcessed(ctx, "x", "failed")
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(0))
	assert.Equal(t, 0.25, sampleRatio(0.25))
	assert.Equal(t, 1.0, sampleRatio(3))
}
