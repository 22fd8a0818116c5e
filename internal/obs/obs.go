// Package obs centralizes the OpenTelemetry instruments used across the
// storage engine, mirroring the instrumentation pattern in the teacher's
// dolt backend (internal/storage/dolt/access_lock.go's doltMetrics):
// histograms for wait/latency, a counter for retry outcomes. Instruments
// are created once against the global meter provider — a caller that
// never calls otel.SetMeterProvider gets the no-op provider, so this
// package has no test-time side effects.
package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/ragstore/engine/storage")

var (
	lockWaitMs, _     = meter.Float64Histogram("storage.lock.wait_ms", metric.WithDescription("milliseconds spent waiting for the embedded write lock"))
	poolAcquireMs, _  = meter.Float64Histogram("storage.pool.acquire_ms", metric.WithDescription("milliseconds spent acquiring a pooled read connection"))
	retryAttempts, _  = meter.Int64Counter("storage.retry.attempts", metric.WithDescription("retry attempts made by the fault wrapper"))
	vectorQueryMs, _  = meter.Float64Histogram("storage.vector.query_ms", metric.WithDescription("milliseconds spent executing a vector similarity query"))
	graphTraverseMs, _ = meter.Float64Histogram("storage.graph.traverse_ms", metric.WithDescription("milliseconds spent executing a graph traversal"))
)

// RecordLockWait records time spent waiting on the embedded write mutex.
func RecordLockWait(ctx context.Context, ms float64, exclusive bool) {
	lockWaitMs.Record(ctx, ms, metric.WithAttributes(attribute.Bool("exclusive", exclusive)))
}

// RecordPoolAcquire records time spent waiting for a pooled read connection.
func RecordPoolAcquire(ctx context.Context, ms float64) {
	poolAcquireMs.Record(ctx, ms)
}

// RecordRetry records one retry-wrapper event for op: succeeded=false for
// each attempt that failed transiently, succeeded=true once for the
// attempt that succeeded after at least one retry.
func RecordRetry(ctx context.Context, op string, succeeded bool) {
	retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("succeeded", succeeded),
	))
}

// RecordVectorQuery records vector query latency.
func RecordVectorQuery(ctx context.Context, ms float64) {
	vectorQueryMs.Record(ctx, ms)
}

// RecordGraphTraverse records graph traversal latency.
func RecordGraphTraverse(ctx context.Context, ms float64) {
	graphTraverseMs.Record(ctx, ms)
}
