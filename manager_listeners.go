package goAccess

import (
	"time"

	"github.com/MrEthical07/goAccess/internal/registry"
	"go.uber.org/zap"
)

// RegisterClient subscribes fn to every token accepted from now on. client is
// the listener's identity and is held weakly: once it becomes unreachable fn
// stops receiving updates and the entry is purged. Registering the same client
// again replaces its callback.
//
// client must point to a non-zero-sized value, since distinct zero-sized
// allocations may share an address. fn must not capture client, or the
// registration keeps it alive.
func RegisterClient[T any](m *Manager, client *T, fn UpdateFunc) error {
	if client == nil {
		return ErrNilClient
	}
	if fn == nil {
		return ErrNilUpdateFunc
	}

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return ErrManagerShutdown
	}
	if limit := m.cfg.Listeners.MaxListeners; limit > 0 &&
		!registry.Contains(m.listeners, client) &&
		m.listeners.Len() >= limit {
		m.mu.Unlock()
		m.logger.Warn("listener rejected", zap.Int("max_listeners", limit))
		m.emitAudit(auditEventListenerRegistered, false, time.Time{}, ErrListenerLimit, nil)
		return ErrListenerLimit
	}
	replaced := registry.Register(m.listeners, client, fn)
	m.mu.Unlock()

	m.metrics.Inc(MetricListenerRegistered)
	m.logger.Debug("listener registered", zap.Bool("replaced", replaced))
	m.emitAudit(auditEventListenerRegistered, true, time.Time{}, nil, func() map[string]string {
		if replaced {
			return map[string]string{"replaced": "true"}
		}
		return nil
	})
	return nil
}

// UnregisterClient removes client's callback. Removing an absent client is a
// no-op.
func UnregisterClient[T any](m *Manager, client *T) {
	if client == nil || m.closed.Load() {
		return
	}
	if !registry.Unregister(m.listeners, client) {
		return
	}

	m.metrics.Inc(MetricListenerUnregistered)
	m.logger.Debug("listener unregistered")
	m.emitAudit(auditEventListenerUnregistered, true, time.Time{}, nil, nil)
}

// ListenerCount returns the number of listeners whose client is still
// reachable.
func (m *Manager) ListenerCount() int {
	return m.listeners.Len()
}

// onListenerPurged runs on the runtime cleanup goroutine.
func (m *Manager) onListenerPurged() {
	m.metrics.Inc(MetricListenerPurged)
	m.logger.Debug("listener purged after client was collected")
	m.emitAudit(auditEventListenerPurged, true, time.Time{}, nil, nil)
}
