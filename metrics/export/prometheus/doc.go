// Package prometheus renders regAuth engine metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [regAuth.Engine] and exposes an [http.Handler]
// suitable for mounting at /metrics. Counter names are prefixed regauth_*_total; the
// single histogram is regauth_validate_latency_seconds. regauth_store_backend_info
// labels each mutable table with the store serving it.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
