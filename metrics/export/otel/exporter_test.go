package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	goAccess "github.com/MrEthical07/goAccess"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goAccess.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) ID() string { return "fake-manager" }

func (f *fakeSource) MetricsSnapshot() goAccess.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goAccess.MetricsSnapshot{
		Counters:   make(map[goAccess.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goAccess.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccess-test")

	src := &fakeSource{
		snapshot: goAccess.MetricsSnapshot{
			Counters: map[goAccess.MetricID]uint64{
				goAccess.MetricTokenUpdated: 3,
			},
			Histograms: map[goAccess.MetricID][]uint64{
				goAccess.MetricNotifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					assertManagerID(t, md.Name, dp.Attributes)
					values[md.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					assertManagerID(t, md.Name, dp.Attributes)
					values[md.Name] = dp.Value
				}
			}
		}
	}
	if got := values["goaccess_token_updated_total"]; got != 3 {
		t.Fatalf("expected token_updated 3, got %d", got)
	}
	if got := values["goaccess_notify_latency_seconds_count"]; got != 8 {
		t.Fatalf("expected histogram count 8, got %d", got)
	}
	if got := values["goaccess_audit_dropped_total"]; got != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got)
	}
}

func assertManagerID(t *testing.T, name string, set attribute.Set) {
	t.Helper()
	v, ok := set.Value(ManagerIDKey)
	if !ok || v.AsString() != "fake-manager" {
		t.Fatalf("expected %s to carry manager id, got %v", name, set)
	}
}

func TestExporterRejectsNilMeter(t *testing.T) {
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterRejectsNilManager(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("goaccess-test")
	if _, err := NewOTelExporter(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccess-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goaccess-test")

	src := &fakeSource{
		snapshot: goAccess.MetricsSnapshot{
			Counters: map[goAccess.MetricID]uint64{
				goAccess.MetricTokenUpdated: 1,
			},
			Histograms: map[goAccess.MetricID][]uint64{
				goAccess.MetricNotifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goAccess.MetricTokenUpdated] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
