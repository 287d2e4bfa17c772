package goAccess

import (
	"time"

	"github.com/MrEthical07/goAccess/clock"
	"github.com/MrEthical07/goAccess/internal/registry"
	"github.com/MrEthical07/goAccess/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder assembles a Manager. A Builder is single-use.
type Builder struct {
	config Config

	delegate  any
	clock     clock.Clock
	parser    ClaimsParser
	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder carrying DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDelegate sets the handler for lifecycle notifications. d may implement
// any subset of WillExpireHandler, ExpiredHandler and InvalidTokenHandler.
//
// The manager holds d strongly, not weakly: a delegate that also references
// the manager forms a cycle the collector reclaims as a whole once neither is
// reachable. Call Shutdown to stop notifications deterministically.
func (b *Builder) WithDelegate(d any) *Builder {
	b.delegate = d
	return b
}

// WithClock replaces the wall clock and timer substrate. Tests use it to drive
// alarms deterministically.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithClaimsParser replaces DefaultClaimsParser.
func (b *Builder) WithClaimsParser(p ClaimsParser) *Builder {
	b.parser = p
	return b
}

// WithLogger sets the structured logger. Token strings are never logged.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. It has no effect unless
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records listener fan-out latency; it requires metrics.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithWillExpireLead overrides how long before expiry TokenWillExpire fires.
func (b *Builder) WithWillExpireLead(d time.Duration) *Builder {
	b.config.Expiry.WillExpireLead = d
	return b
}

// Build validates the configuration, decodes initialToken and returns an
// active Manager with both alarms scheduled. It fails with
// ErrInvalidTokenFormat when the token carries no decodable expiry.
func (b *Builder) Build(initialToken string) (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parser := b.parser
	if parser == nil {
		parser = DefaultClaimsParser
	}
	expiry, ok := parser.ParseExpiry(initialToken)
	if !ok {
		return nil, ErrInvalidTokenFormat
	}

	c := b.clock
	if c == nil {
		c = clock.Real()
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		id:       uuid.NewString(),
		cfg:      cfg,
		clock:    c,
		parser:   parser,
		delegate: resolveDelegate(b.delegate),
		metrics:  NewMetrics(cfg.Metrics),
	}
	m.logger = logger.Named("goaccess").With(zap.String("manager_id", m.id))
	m.audit = newAuditDispatcher(cfg.Audit, b.auditSink, m.logger)
	m.listeners = registry.New[UpdateFunc](m.onListenerPurged)
	m.sched = schedule.New(c, cfg.Expiry.WillExpireLead, &m.mu, m.onAlarm)

	m.mu.Lock()
	m.token = initialToken
	m.expiry = expiry
	m.hasExpiry = true
	due := m.sched.Schedule(expiry)
	m.mu.Unlock()

	m.recordSchedule(0, due)
	m.logger.Info("access manager created",
		zap.Time("expires_at", expiry),
		zap.Int("alarms_due", due),
	)
	m.emitAudit(auditEventManagerCreated, true, expiry, nil, nil)

	b.built = true

	return m, nil
}

// Create builds a Manager with default configuration.
func Create(initialToken string, delegate any) (*Manager, error) {
	return New().WithDelegate(delegate).Build(initialToken)
}
