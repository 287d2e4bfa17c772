package otel

import (
	"context"
	"errors"
	"fmt"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// ManagerIDKey is the attribute carried by every observation.
const ManagerIDKey = attribute.Key("goaccess.manager_id")

// Source is what the exporter observes. *goAccess.Manager satisfies it.
type Source interface {
	ID() string
	MetricsSnapshot() goAccess.MetricsSnapshot
	AuditDropped() uint64
}

type latencyGauges struct {
	id      goAccess.MetricID
	buckets []metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes one manager's metrics as observable instruments on
// a caller-supplied Meter.
type OTelExporter struct {
	source       Source
	attrs        metric.MeasurementOption
	registration metric.Registration

	counters     map[goAccess.MetricID]metric.Int64ObservableCounter
	latency      []latencyGauges
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter observes m on every collection cycle.
func NewOTelExporter(meter metric.Meter, m *goAccess.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

// NewOTelExporterFromSource observes any Source implementation.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		attrs:    metric.WithAttributes(ManagerIDKey.String(source.ID())),
		counters: make(map[goAccess.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	// OTel has no observable histogram, so each cumulative bucket is a gauge.
	for _, def := range internaldefs.HistogramDefs {
		g := latencyGauges{id: def.ID}
		for _, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			b, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket of "+def.Name+"."))
			if err != nil {
				return nil, fmt.Errorf("gauge %s: %w", name, err)
			}
			g.buckets = append(g.buckets, b)
			observables = append(observables, b)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Samples in "+def.Name+"."))
		if err != nil {
			return nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
		}
		g.count = count
		observables = append(observables, count)
		e.latency = append(e.latency, g)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snapshot.Counters[id]), e.attrs)
	}
	for _, g := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[g.id]))
		for i, b := range g.buckets {
			o.ObserveInt64(b, int64(cumulative[i]), e.attrs)
		}
		o.ObserveInt64(g.count, int64(cumulative[len(cumulative)-1]), e.attrs)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), e.attrs)
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
