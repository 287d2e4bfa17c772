package goAccess

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAccess/claims"
	"github.com/MrEthical07/goAccess/clock"
	"github.com/MrEthical07/goAccess/internal/registry"
	"github.com/MrEthical07/goAccess/internal/schedule"
	"go.uber.org/zap"
)

// Version is the library version reported by Manager.Version.
const Version = "1.0.0"

// ClaimsParser extracts the expiry from an opaque token string.
type ClaimsParser interface {
	ParseExpiry(token string) (time.Time, bool)
}

// ClaimsParserFunc adapts a function to ClaimsParser.
type ClaimsParserFunc func(token string) (time.Time, bool)

func (f ClaimsParserFunc) ParseExpiry(token string) (time.Time, bool) {
	return f(token)
}

// DefaultClaimsParser reads the exp claim of an unverified JWT.
var DefaultClaimsParser ClaimsParser = ClaimsParserFunc(claims.ParseExpiry)

// UpdateFunc receives every token accepted after its registration.
type UpdateFunc func(token string)

// Manager owns one token, its two expiry alarms and a set of weakly held
// listeners. All methods are safe for concurrent use.
type Manager struct {
	id       string
	cfg      Config
	clock    clock.Clock
	parser   ClaimsParser
	delegate delegateSet
	logger   *zap.Logger
	metrics  *Metrics
	audit    *auditDispatcher

	// mu guards token state and is shared with the scheduler. The registry
	// lock is always taken after it.
	mu        sync.Mutex
	token     string
	expiry    time.Time
	hasExpiry bool
	closed    atomic.Bool

	sched     *schedule.Scheduler
	listeners *registry.Registry[UpdateFunc]
}

// ID returns the identifier attached to this manager's logs and audit events.
func (m *Manager) ID() string {
	return m.id
}

// Version returns the library version.
func (m *Manager) Version() string {
	return Version
}

// CurrentToken returns the most recently accepted token, or "" after Shutdown.
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// ExpiryTime returns the expiry of the current token. ok is false after
// Shutdown.
func (m *Manager) ExpiryTime() (expiry time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiry, m.hasExpiry
}

// IsShutdown reports whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.closed.Load()
}

// MetricsSnapshot copies the manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// UpdateToken replaces the current token. A token without a decodable expiry
// leaves state untouched, is reported to the delegate's TokenInvalid and
// returns ErrInvalidTokenFormat. An accepted token reschedules both alarms and
// is then delivered to every live listener, outside all locks.
func (m *Manager) UpdateToken(token string) error {
	expiry, ok := m.parser.ParseExpiry(token)

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return ErrManagerShutdown
	}
	if !ok {
		m.mu.Unlock()
		m.rejectToken()
		return ErrInvalidTokenFormat
	}

	m.token = token
	m.expiry = expiry
	m.hasExpiry = true
	cancelled, due := m.sched.Reschedule(expiry)
	m.mu.Unlock()

	m.recordSchedule(cancelled, due)
	m.metrics.Inc(MetricTokenUpdated)
	m.logger.Debug("token updated",
		zap.Time("expires_at", expiry),
		zap.Int("alarms_due", due),
	)
	m.emitAudit(auditEventTokenUpdated, true, expiry, nil, nil)

	m.notifyListeners(token)
	return nil
}

func (m *Manager) rejectToken() {
	m.metrics.Inc(MetricTokenInvalid)
	m.logger.Warn("token rejected", zap.Error(ErrInvalidTokenFormat))
	m.emitAudit(auditEventTokenInvalid, false, time.Time{}, ErrInvalidTokenFormat, nil)

	if h := m.delegate.invalid; h != nil {
		m.invokeDelegate("token_invalid", func() { h.TokenInvalid(m) })
	}
}

func (m *Manager) notifyListeners(token string) {
	start := time.Now()
	delivered, skipped := m.listeners.Each(func(fn UpdateFunc) {
		if m.closed.Load() {
			return
		}
		m.invokeListener(fn, token)
	})

	m.metrics.Add(MetricListenerNotified, uint64(delivered))
	m.metrics.Add(MetricListenerSkipped, uint64(skipped))
	if m.metrics.LatencyEnabled() {
		m.metrics.Observe(MetricNotifyLatency, time.Since(start))
	}
}

// invokeListener isolates one listener: a panic is recovered, counted and
// reported, and the remaining listeners still run.
func (m *Manager) invokeListener(fn UpdateFunc, token string) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.Inc(MetricListenerPanic)
			m.logger.Error("listener panicked", zap.Any("panic", r))
			m.emitAudit(auditEventListenerPanic, false, time.Time{}, errCallbackPanic, func() map[string]string {
				return map[string]string{"panic": fmt.Sprint(r)}
			})
		}
	}()
	fn(token)
}

// invokeDelegate recovers a panicking delegate so it never unwinds a timer
// goroutine or the caller of UpdateToken.
func (m *Manager) invokeDelegate(capability string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.Inc(MetricDelegatePanic)
			m.logger.Error("delegate panicked",
				zap.String("capability", capability),
				zap.Any("panic", r),
			)
			m.emitAudit(auditEventDelegatePanic, false, time.Time{}, errCallbackPanic, func() map[string]string {
				return map[string]string{
					"capability": capability,
					"panic":      fmt.Sprint(r),
				}
			})
		}
	}()
	call()
}

// onAlarm runs on the clock substrate after the scheduler confirmed the alarm
// under m.mu. expiry is the one the alarm was armed against, not whatever
// token is current by now.
func (m *Manager) onAlarm(k schedule.Kind, expiry time.Time) {
	if m.closed.Load() {
		return
	}

	var (
		event, capability string
		metric            MetricID
		call              func()
	)
	switch k {
	case schedule.WillExpire:
		event, capability, metric = auditEventTokenWillExpire, "token_will_expire", MetricTokenWillExpire
		m.logger.Info("token will expire", zap.Time("expires_at", expiry))
		if h := m.delegate.willExpire; h != nil {
			call = func() { h.TokenWillExpire(m) }
		}
	case schedule.Expired:
		event, capability, metric = auditEventTokenExpired, "token_expired", MetricTokenExpired
		m.logger.Info("token expired", zap.Time("expires_at", expiry))
		if h := m.delegate.expired; h != nil {
			call = func() { h.TokenExpired(m) }
		}
	default:
		return
	}
	m.emitAudit(event, true, expiry, nil, nil)

	// Logging and audit may block. The delegate call is committed only now,
	// under the lock Shutdown takes, so a Shutdown that returned in between
	// always wins.
	if !m.commitAlarm(metric) {
		m.logger.Debug("alarm dropped by shutdown", zap.Stringer("alarm", k))
		return
	}
	if call != nil {
		m.invokeDelegate(capability, call)
	}
}

// commitAlarm reports whether an alarm may still reach the delegate and, if
// so, counts it as delivered.
func (m *Manager) commitAlarm(metric MetricID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return false
	}
	m.metrics.Inc(metric)
	return true
}

func (m *Manager) recordSchedule(cancelled, due int) {
	m.metrics.Add(MetricAlarmCancelled, uint64(cancelled))
	m.metrics.Add(MetricAlarmScheduled, 2)
	m.metrics.Add(MetricAlarmImmediate, uint64(due))
}

// Shutdown cancels both alarms, drops every listener, clears the token and
// flushes the audit dispatcher. No alarm or listener dispatch begins after it
// returns. Shutdown is idempotent and may be called from a delegate.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return
	}
	m.closed.Store(true)
	cancelled := m.sched.Close()
	cleared := m.listeners.Clear()
	m.token = ""
	m.expiry = time.Time{}
	m.hasExpiry = false
	m.mu.Unlock()

	m.metrics.Add(MetricAlarmCancelled, uint64(cancelled))
	m.metrics.Inc(MetricShutdown)
	m.logger.Info("access manager shut down",
		zap.Int("alarms_cancelled", cancelled),
		zap.Int("listeners_cleared", cleared),
	)
	m.emitAudit(auditEventManagerShutdown, true, time.Time{}, nil, func() map[string]string {
		return map[string]string{"listeners_cleared": fmt.Sprint(cleared)}
	})
	m.audit.Close()
}
