package goAccess

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuditEvent describes one lifecycle transition. Token strings are never
// included.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	ManagerID string            `json:"manager_id"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine. Emit is
// called sequentially.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// SinkFunc adapts a function to AuditSink.
type SinkFunc func(ctx context.Context, event AuditEvent)

func (f SinkFunc) Emit(ctx context.Context, event AuditEvent) {
	f(ctx, event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// MultiSink delivers every event to each sink in order.
type MultiSink []AuditSink

func (s MultiSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

// ChannelSink forwards events to a buffered channel. Emit blocks while the
// channel is full.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// ZapSink writes events as structured log entries: info for successes, warn
// for failures.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink logs through l, or discards when l is nil.
func NewZapSink(l *zap.Logger) *ZapSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapSink{logger: l}
}

func (s *ZapSink) Emit(_ context.Context, event AuditEvent) {
	fields := make([]zap.Field, 0, 5+len(event.Metadata))
	fields = append(fields,
		zap.String("event_type", event.EventType),
		zap.String("manager_id", event.ManagerID),
		zap.Time("ts", event.Timestamp),
	)
	if event.ExpiresAt != nil {
		fields = append(fields, zap.Time("expires_at", *event.ExpiresAt))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String("meta."+k, v))
	}

	if event.Success {
		s.logger.Info("audit", fields...)
		return
	}
	s.logger.Warn("audit", append(fields, zap.String("error", event.Error))...)
}
