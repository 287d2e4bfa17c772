package goAccess

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAccess/internal/clocktest"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// JWT NumericDate has second precision, so the epoch is second-aligned.
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var testSigningKey = []byte("goaccess-test-signing-key-32-bytes!")

func mintToken(t testing.TB, exp time.Time) string {
	t.Helper()
	return mintTokenFor(t, "user-1", exp)
}

func mintTokenFor(t testing.TB, subject string, exp time.Time) string {
	t.Helper()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: gjwt.NewNumericDate(exp),
		IssuedAt:  gjwt.NewNumericDate(epoch),
	}).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

type recordingDelegate struct {
	willExpire atomic.Int32
	expired    atomic.Int32
	invalid    atomic.Int32

	mu    sync.Mutex
	order []string

	onWillExpire func(m *Manager)
	onExpired    func(m *Manager)
}

func (d *recordingDelegate) record(name string) {
	d.mu.Lock()
	d.order = append(d.order, name)
	d.mu.Unlock()
}

func (d *recordingDelegate) Order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *recordingDelegate) TokenWillExpire(m *Manager) {
	d.willExpire.Add(1)
	d.record("will_expire")
	if d.onWillExpire != nil {
		d.onWillExpire(m)
	}
}

func (d *recordingDelegate) TokenExpired(m *Manager) {
	d.expired.Add(1)
	d.record("expired")
	if d.onExpired != nil {
		d.onExpired(m)
	}
}

func (d *recordingDelegate) TokenInvalid(*Manager) {
	d.invalid.Add(1)
	d.record("invalid")
}

func (d *recordingDelegate) counts() (willExpire, expired, invalid int32) {
	return d.willExpire.Load(), d.expired.Load(), d.invalid.Load()
}

// listener is a client key. The padding keeps it non-zero-sized.
type listener struct {
	name string
	_    [16]byte
}

type deliveries struct {
	mu  sync.Mutex
	got map[string][]string
}

func newDeliveries() *deliveries {
	return &deliveries{got: make(map[string][]string)}
}

func (d *deliveries) fn(name string) UpdateFunc {
	return func(tok string) {
		d.mu.Lock()
		d.got[name] = append(d.got[name], tok)
		d.mu.Unlock()
	}
}

func (d *deliveries) tokens(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.got[name]))
	copy(out, d.got[name])
	return out
}

func newTestManager(t *testing.T, exp time.Time, d any, opts ...func(*Builder)) (*Manager, *clocktest.Fake) {
	t.Helper()
	fc := clocktest.New(epoch)
	b := New().
		WithDelegate(d).
		WithClock(fc).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}

	m, err := b.Build(mintToken(t, exp))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Shutdown)
	return m, fc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
