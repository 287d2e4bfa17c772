package goAccess

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Expiry.WillExpireLead != 3*time.Minute {
		t.Fatalf("expected 3m lead, got %s", cfg.Expiry.WillExpireLead)
	}
	if cfg.Listeners.MaxListeners != 0 {
		t.Fatalf("expected unlimited listeners by default, got %d", cfg.Listeners.MaxListeners)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "zero lead invalid",
			mutate:    func(c *Config) { c.Expiry.WillExpireLead = 0 },
			wantValid: false,
		},
		{
			name:      "negative lead invalid",
			mutate:    func(c *Config) { c.Expiry.WillExpireLead = -time.Second },
			wantValid: false,
		},
		{
			name:      "lead over a day invalid",
			mutate:    func(c *Config) { c.Expiry.WillExpireLead = 25 * time.Hour },
			wantValid: false,
		},
		{
			name:      "custom lead valid",
			mutate:    func(c *Config) { c.Expiry.WillExpireLead = 30 * time.Second },
			wantValid: true,
		},
		{
			name:      "negative listener limit invalid",
			mutate:    func(c *Config) { c.Listeners.MaxListeners = -1 },
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "histograms without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, err := New().
		WithWillExpireLead(-time.Minute).
		Build(mintToken(t, epoch.Add(time.Hour)))
	if err == nil {
		t.Fatal("expected Build to reject invalid config")
	}
	if errors.Is(err, ErrInvalidTokenFormat) {
		t.Fatal("config error must be reported before token decoding")
	}
}
