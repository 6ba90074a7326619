// Package telemetry wires the engine's counters and histograms, the
// metrics half of the teacher's OTel setup in
// internal/storage/dolt/store.go (doltMetrics, registered against the
// global meter provider at init time so instruments start as no-ops and
// pick up a real exporter the moment one is installed). This module has
// no tracing story — the engine is a synchronous, in-process library with
// no request boundary worth spanning — so only otel/metric is wired, not
// otel/trace.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds every instrument the engine façade records against.
// Registered once against the global meter provider; like the teacher's
// doltMetrics, instruments are harmless no-ops until a real
// MeterProvider is installed with Init.
var Metrics struct {
	RowStoreInsertCount    metric.Int64Counter
	RowStoreDeleteCount    metric.Int64Counter
	RowStoreUpdateCount    metric.Int64Counter
	DataflowDeltaLatency   metric.Float64Histogram
	OptimizerPassDuration  metric.Float64Histogram
	PlanCacheHitCount      metric.Int64Counter
	PlanCacheMissCount     metric.Int64Counter
}

const instrumentationName = "github.com/cynos-db/cynos/internal/engine"

func init() {
	m := otel.Meter(instrumentationName)

	Metrics.RowStoreInsertCount, _ = m.Int64Counter("cynos.rowstore.insert.count",
		metric.WithDescription("Rows inserted across all tables"),
		metric.WithUnit("{row}"),
	)
	Metrics.RowStoreDeleteCount, _ = m.Int64Counter("cynos.rowstore.delete.count",
		metric.WithDescription("Rows deleted across all tables"),
		metric.WithUnit("{row}"),
	)
	Metrics.RowStoreUpdateCount, _ = m.Int64Counter("cynos.rowstore.update.count",
		metric.WithDescription("Rows updated across all tables"),
		metric.WithUnit("{row}"),
	)
	Metrics.DataflowDeltaLatency, _ = m.Float64Histogram("cynos.dataflow.delta.latency",
		metric.WithDescription("Time to propagate a table-change batch through a materialized view"),
		metric.WithUnit("ms"),
	)
	Metrics.OptimizerPassDuration, _ = m.Float64Histogram("cynos.optimizer.pass.duration",
		metric.WithDescription("Time spent in a single optimizer pass"),
		metric.WithUnit("ms"),
	)
	Metrics.PlanCacheHitCount, _ = m.Int64Counter("cynos.planctx.cache.hit.count",
		metric.WithDescription("Plan cache lookups that found a cached physical plan"),
		metric.WithUnit("{lookup}"),
	)
	Metrics.PlanCacheMissCount, _ = m.Int64Counter("cynos.planctx.cache.miss.count",
		metric.WithDescription("Plan cache lookups that required a fresh plan conversion"),
		metric.WithUnit("{lookup}"),
	)
}

// Init installs provider as the global OTel meter provider and
// re-registers every instrument against it, mirroring the teacher's own
// telemetry.Init() entry point that upgrades the delegating no-op
// provider to a real one.
func Init(provider metric.MeterProvider) {
	otel.SetMeterProvider(provider)
	m := provider.Meter(instrumentationName)

	Metrics.RowStoreInsertCount, _ = m.Int64Counter("cynos.rowstore.insert.count")
	Metrics.RowStoreDeleteCount, _ = m.Int64Counter("cynos.rowstore.delete.count")
	Metrics.RowStoreUpdateCount, _ = m.Int64Counter("cynos.rowstore.update.count")
	Metrics.DataflowDeltaLatency, _ = m.Float64Histogram("cynos.dataflow.delta.latency")
	Metrics.OptimizerPassDuration, _ = m.Float64Histogram("cynos.optimizer.pass.duration")
	Metrics.PlanCacheHitCount, _ = m.Int64Counter("cynos.planctx.cache.hit.count")
	Metrics.PlanCacheMissCount, _ = m.Int64Counter("cynos.planctx.cache.miss.count")
}
