package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is used when Config.Stream is empty.
const DefaultStream = "goaccess:audit"

var (
	ErrNilClient    = errors.New("nil redis client")
	ErrInvalidEntry = errors.New("invalid audit stream entry")
)

const (
	fieldTimestamp = "ts"
	fieldEventType = "event_type"
	fieldManagerID = "manager_id"
	fieldExpiresAt = "expires_at"
	fieldSuccess   = "success"
	fieldError     = "error"
	fieldMetadata  = "metadata"
)

// Config controls stream naming and trimming.
type Config struct {
	// Stream is the stream key. Empty means DefaultStream.
	Stream string
	// MaxLen trims the stream on every write. Zero disables trimming.
	MaxLen int64
	// ApproxTrim trims with "~", letting Redis trim lazily.
	ApproxTrim bool
	// WriteTimeout bounds each XADD. Zero means 2 seconds.
	WriteTimeout time.Duration
}

// Sink implements goAccess.AuditSink on a Redis stream.
type Sink struct {
	client redis.UniversalClient
	cfg    Config
	logger *zap.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

// New returns a sink writing through client. logger may be nil.
func New(client redis.UniversalClient, cfg Config, logger *zap.Logger) (*Sink, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if strings.TrimSpace(cfg.Stream) == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.MaxLen < 0 {
		return nil, fmt.Errorf("redisstream: MaxLen must be >= 0, got %d", cfg.MaxLen)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		client: client,
		cfg:    cfg,
		logger: logger.Named("redisstream"),
	}, nil
}

// Stream returns the stream key.
func (s *Sink) Stream() string {
	return s.cfg.Stream
}

// Emit appends event to the stream. Failures are logged and counted; the
// dispatcher never sees them.
func (s *Sink) Emit(ctx context.Context, event goAccess.AuditEvent) {
	values, err := encode(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("encode audit event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: s.cfg.Stream,
		Values: values,
	}
	if s.cfg.MaxLen > 0 {
		args.MaxLen = s.cfg.MaxLen
		args.Approx = s.cfg.ApproxTrim
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		s.failed.Add(1)
		s.logger.Warn("xadd audit event",
			zap.String("stream", s.cfg.Stream),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return
	}
	s.written.Add(1)
}

// Written returns how many events reached the stream.
func (s *Sink) Written() uint64 {
	return s.written.Load()
}

// Failed returns how many events could not be written.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Read returns up to count events from the start of the stream.
func (s *Sink) Read(ctx context.Context, count int64) ([]goAccess.AuditEvent, error) {
	msgs, err := s.client.XRangeN(ctx, s.cfg.Stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", s.cfg.Stream, err)
	}
	out := make([]goAccess.AuditEvent, 0, len(msgs))
	for _, msg := range msgs {
		event, err := Decode(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func encode(event goAccess.AuditEvent) (map[string]any, error) {
	values := map[string]any{
		fieldTimestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldEventType: event.EventType,
		fieldManagerID: event.ManagerID,
		fieldSuccess:   strconv.FormatBool(event.Success),
	}
	if event.ExpiresAt != nil {
		values[fieldExpiresAt] = event.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	if event.Error != "" {
		values[fieldError] = event.Error
	}
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, err
		}
		values[fieldMetadata] = string(raw)
	}
	return values, nil
}

// Decode turns one stream entry back into an AuditEvent.
func Decode(msg redis.XMessage) (goAccess.AuditEvent, error) {
	var event goAccess.AuditEvent

	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	ts, err := time.Parse(time.RFC3339Nano, str(fieldTimestamp))
	if err != nil {
		return event, fmt.Errorf("%w %s: timestamp: %w", ErrInvalidEntry, msg.ID, err)
	}
	event.Timestamp = ts
	event.EventType = str(fieldEventType)
	event.ManagerID = str(fieldManagerID)
	event.Error = str(fieldError)
	if event.EventType == "" {
		return event, fmt.Errorf("%w %s: missing event type", ErrInvalidEntry, msg.ID)
	}

	if event.Success, err = strconv.ParseBool(str(fieldSuccess)); err != nil {
		return event, fmt.Errorf("%w %s: success: %w", ErrInvalidEntry, msg.ID, err)
	}
	if raw := str(fieldExpiresAt); raw != "" {
		exp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return event, fmt.Errorf("%w %s: expires_at: %w", ErrInvalidEntry, msg.ID, err)
		}
		event.ExpiresAt = &exp
	}
	if raw := str(fieldMetadata); raw != "" {
		if err := json.Unmarshal([]byte(raw), &event.Metadata); err != nil {
			return event, fmt.Errorf("%w %s: metadata: %w", ErrInvalidEntry, msg.ID, err)
		}
	}
	return event, nil
}
