package goAccess

import (
	"errors"
	"time"

	"github.com/MrEthical07/goAccess/internal/schedule"
)

// Config groups the tunables of an access manager. A Config is copied into
// the manager at Build time and never read again.
type Config struct {
	Expiry    ExpiryConfig
	Listeners ListenerConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
EXPIRY CONFIG
====================================
*/

// ExpiryConfig controls alarm timing.
type ExpiryConfig struct {
	// WillExpireLead is how long before expiry TokenWillExpire fires.
	WillExpireLead time.Duration
}

/*
====================================
LISTENER CONFIG
====================================
*/

// ListenerConfig controls the listener registry.
type ListenerConfig struct {
	// MaxListeners caps live registrations. Zero means unlimited.
	MaxListeners int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when Builder.WithConfig is not
// called: a three-minute warning lead, unlimited listeners, audit and metrics off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Expiry: ExpiryConfig{
			WillExpireLead: schedule.DefaultLead,
		},
		Listeners: ListenerConfig{
			MaxListeners: 0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Expiry.WillExpireLead <= 0 {
		return errors.New("Expiry WillExpireLead must be > 0")
	}
	if c.Expiry.WillExpireLead > 24*time.Hour {
		return errors.New("Expiry WillExpireLead must be <= 24h")
	}
	if c.Listeners.MaxListeners < 0 {
		return errors.New("Listeners MaxListeners must be >= 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
