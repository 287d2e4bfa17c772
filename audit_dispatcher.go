package goAccess

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// auditDispatcher moves events from the manager onto one sink goroutine so
// lifecycle paths never wait on sink I/O, unless DropIfFull is off.
type auditDispatcher struct {
	sink       AuditSink
	logger     *zap.Logger
	dropIfFull bool

	queue   chan AuditEvent
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool

	dropped atomic.Uint64
	emitted atomic.Uint64
}

// newAuditDispatcher returns nil when audit is disabled; every method is
// nil-safe.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *zap.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &auditDispatcher{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush delivers whatever is still queued after stop.
func (d *auditDispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.emitted.Add(1)
}

// Emit queues event and reports whether it was accepted. With DropIfFull it
// never blocks; otherwise it waits for space, ctx or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) bool {
	if d == nil || d.closed.Load() {
		return false
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
			return true
		case <-d.stop:
			return false
		default:
			d.dropped.Add(1)
			return false
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
		return true
	case <-ctx.Done():
		return false
	case <-d.stop:
		return false
	}
}

// Close stops intake, flushes the queue and waits for the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *auditDispatcher) Emitted() uint64 {
	if d == nil {
		return 0
	}
	return d.emitted.Load()
}
