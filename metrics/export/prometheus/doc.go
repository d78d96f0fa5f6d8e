// Package prometheus exposes contentauth engine metrics through the
// client_golang collector interface.
//
// [NewCollector] converts an engine snapshot into constant metrics on every
// scrape; [Handler] mounts it on a private registry. Counter names are
// contentauth_*_total and the single histogram is
// contentauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
