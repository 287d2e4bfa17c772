// Package prometheus renders goAccess manager metrics in Prometheus text
// exposition format.
//
// Counter names are prefixed goaccess_ and end in _total; the single histogram
// is goaccess_notify_latency_seconds. Every series carries a manager_id label,
// so one exporter can serve several managers from the same /metrics route.
//
// # What this package must NOT do
//
//   - Register in a global registry; callers mount the Handler.
//   - Mutate manager state.
package prometheus
