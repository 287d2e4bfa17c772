package goAccess

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricTokenUpdated counts successful UpdateToken calls.
	MetricTokenUpdated MetricID = iota
	// MetricTokenInvalid counts tokens rejected for an undecodable expiry.
	MetricTokenInvalid
	// MetricTokenWillExpire counts delivered will-expire alarms.
	MetricTokenWillExpire
	// MetricTokenExpired counts delivered expired alarms.
	MetricTokenExpired
	// MetricAlarmScheduled counts alarms armed, including immediate ones.
	MetricAlarmScheduled
	// MetricAlarmImmediate counts alarms that were already due when armed.
	MetricAlarmImmediate
	// MetricAlarmCancelled counts pending alarms voided by an update or shutdown.
	MetricAlarmCancelled
	// MetricListenerRegistered counts listener registrations, replacements included.
	MetricListenerRegistered
	// MetricListenerUnregistered counts explicit listener removals.
	MetricListenerUnregistered
	// MetricListenerNotified counts update callbacks invoked.
	MetricListenerNotified
	// MetricListenerSkipped counts deliveries skipped because the client was gone.
	MetricListenerSkipped
	// MetricListenerPurged counts entries dropped after their client was collected.
	MetricListenerPurged
	// MetricListenerPanic counts recovered listener panics.
	MetricListenerPanic
	// MetricDelegatePanic counts recovered delegate panics.
	MetricDelegatePanic
	// MetricShutdown counts effective Shutdown calls.
	MetricShutdown
	// MetricNotifyLatency is the fan-out latency histogram for one update.
	MetricNotifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the notify latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters gated by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters record.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram records.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricNotifyLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricNotifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricNotifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricNotifyLatency].buckets[i])
		}
		s.Histograms[MetricNotifyLatency] = buckets
	}

	return s
}

// Fan-out to in-process callbacks is normally sub-millisecond, so the buckets
// sit well below the network-call ranges.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 10:
		return 0
	case us <= 50:
		return 1
	case us <= 100:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 5000:
		return 5
	case us <= 25000:
		return 6
	default:
		return 7
	}
}
