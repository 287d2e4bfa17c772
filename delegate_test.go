package goAccess

import (
	"testing"
	"time"
)

type willExpireOnly struct {
	calls int
}

func (w *willExpireOnly) TokenWillExpire(*Manager) {
	w.calls++
}

func TestResolveDelegateCapabilities(t *testing.T) {
	if set := resolveDelegate(nil); set.willExpire != nil || set.expired != nil || set.invalid != nil {
		t.Fatal("nil delegate must resolve to no capabilities")
	}

	set := resolveDelegate(&willExpireOnly{})
	if set.willExpire == nil || set.expired != nil || set.invalid != nil {
		t.Fatalf("expected only will-expire capability, got %+v", set)
	}

	set = resolveDelegate(DelegateFuncs{})
	if set.willExpire == nil || set.expired == nil || set.invalid == nil {
		t.Fatal("DelegateFuncs must provide every capability")
	}
}

func TestPartialDelegateIgnoresMissingCapabilities(t *testing.T) {
	d := &willExpireOnly{}
	m, fc := newTestManager(t, epoch.Add(-time.Minute), d)

	fc.Tick()
	if err := m.UpdateToken("garbage"); err == nil {
		t.Fatal("expected invalid token error")
	}

	if d.calls != 1 {
		t.Fatalf("expected one will-expire call, got %d", d.calls)
	}
	if got := m.MetricsSnapshot().Counters[MetricTokenExpired]; got != 1 {
		t.Fatalf("expected expired alarm to fire without a handler, got %d", got)
	}
}

func TestDelegateFuncsNilFieldsAreSafe(t *testing.T) {
	var invalid int
	d := DelegateFuncs{OnInvalidToken: func(*Manager) { invalid++ }}
	m, fc := newTestManager(t, epoch.Add(-time.Minute), d)

	fc.Tick()
	_ = m.UpdateToken("garbage")

	if invalid != 1 {
		t.Fatalf("expected one invalid callback, got %d", invalid)
	}
}

func TestDelegateReceivesManager(t *testing.T) {
	var got *Manager
	d := DelegateFuncs{OnExpired: func(m *Manager) { got = m }}
	m, fc := newTestManager(t, epoch, d)

	fc.Tick()
	if got != m {
		t.Fatal("expected the delegate to receive the owning manager")
	}
}
