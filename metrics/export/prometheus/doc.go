// Package prometheus renders carnet engine metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads an engine (or any source with MetricsSnapshot and
// AuditDropped) and [Exporter.Handler] serves the result; the auth service
// mounts it at GET /metrics. Counters are named carnet_*_total and the single
// histogram is carnet_validate_latency_seconds. Nothing is registered in a
// global registry.
package prometheus
