// Package otel publishes contentauth engine metrics as OpenTelemetry
// observable instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and
// an Int64ObservableGauge per latency bucket. One callback reads
// Engine.MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider.
//   - Mutate engine state.
package otel
