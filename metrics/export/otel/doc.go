// Package otel binds carnet engine metrics to an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per histogram bucket, all fed by a single callback that
// reads the engine snapshot. Callers own the MeterProvider.
package otel
