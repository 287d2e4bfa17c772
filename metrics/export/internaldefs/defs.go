package internaldefs

import (
	goAccess "github.com/MrEthical07/goAccess"
)

// CounterDef names one manager counter for exporters.
type CounterDef struct {
	ID   goAccess.MetricID
	Name string
	Help string
}

// HistogramDef names one manager histogram for exporters.
type HistogramDef struct {
	ID   goAccess.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goAccess.MetricTokenUpdated, Name: "goaccess_token_updated_total", Help: "Accepted token updates."},
	{ID: goAccess.MetricTokenInvalid, Name: "goaccess_token_invalid_total", Help: "Tokens rejected for an undecodable expiry."},
	{ID: goAccess.MetricTokenWillExpire, Name: "goaccess_token_will_expire_total", Help: "Delivered will-expire alarms."},
	{ID: goAccess.MetricTokenExpired, Name: "goaccess_token_expired_total", Help: "Delivered expired alarms."},
	{ID: goAccess.MetricAlarmScheduled, Name: "goaccess_alarm_scheduled_total", Help: "Alarms armed, immediate ones included."},
	{ID: goAccess.MetricAlarmImmediate, Name: "goaccess_alarm_immediate_total", Help: "Alarms already due when armed."},
	{ID: goAccess.MetricAlarmCancelled, Name: "goaccess_alarm_cancelled_total", Help: "Pending alarms voided by an update or shutdown."},
	{ID: goAccess.MetricListenerRegistered, Name: "goaccess_listener_registered_total", Help: "Listener registrations, replacements included."},
	{ID: goAccess.MetricListenerUnregistered, Name: "goaccess_listener_unregistered_total", Help: "Explicit listener removals."},
	{ID: goAccess.MetricListenerNotified, Name: "goaccess_listener_notified_total", Help: "Update callbacks invoked."},
	{ID: goAccess.MetricListenerSkipped, Name: "goaccess_listener_skipped_total", Help: "Deliveries skipped because the client was collected."},
	{ID: goAccess.MetricListenerPurged, Name: "goaccess_listener_purged_total", Help: "Listener entries purged after client collection."},
	{ID: goAccess.MetricListenerPanic, Name: "goaccess_listener_panic_total", Help: "Recovered listener panics."},
	{ID: goAccess.MetricDelegatePanic, Name: "goaccess_delegate_panic_total", Help: "Recovered delegate panics."},
	{ID: goAccess.MetricShutdown, Name: "goaccess_shutdown_total", Help: "Effective manager shutdowns."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccess.MetricNotifyLatency, Name: "goaccess_notify_latency_seconds", Help: "Listener fan-out latency per accepted update."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "goaccess_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped on a full dispatcher buffer."
)

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.00001",
	"0.00005",
	"0.0001",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds rendered as metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_00001",
	"0_00005",
	"0_0001",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
