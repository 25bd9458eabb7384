// Package otel binds regAuth engine metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each engine counter, one
// le-labelled Int64ObservableGauge for the validate latency buckets and a
// regauth_store_backend_info gauge labelled by table and backend. A single callback
// reads the engine snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
