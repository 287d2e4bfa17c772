// Package otel publishes goAccess manager metrics through OpenTelemetry.
//
// [NewOTelExporter] creates one Int64ObservableCounter per manager counter and
// one Int64ObservableGauge per latency bucket, all observed with the
// goaccess.manager_id attribute. A single callback reads
// [goAccess.Manager.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate manager state.
package otel
