package notify

import (
    "context"
    "errors"
    "io"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/store-reservation/internal/logger"
)

// ErrQueueFull is returned by AsyncPublisher.Publish when the buffer is full
// and the event was dropped.
var ErrQueueFull = errors.New("notify: queue full, event dropped")

// ErrClosed is returned by AsyncPublisher.Publish after Close.
var ErrClosed = errors.New("notify: publisher closed")

type queuedEvent struct {
    ctx context.Context
    ev  ReservationEvent
}

// AsyncPublisher hands events to a background goroutine so callers never
// wait on the broker.  Publish only enqueues; delivery errors are logged
// with the caller's request logger.  Events are dropped, not queued without
// bound, when the broker falls behind.
type AsyncPublisher struct {
    next    Publisher
    timeout time.Duration
    queue   chan queuedEvent
    done    chan struct{}

    mu     sync.RWMutex
    closed bool
}

// NewAsync starts the delivery goroutine for next.  size bounds the buffer
// and timeout bounds each delivery; non-positive values pick 256 and 5s.
func NewAsync(next Publisher, size int, timeout time.Duration) *AsyncPublisher {
    if size <= 0 {
        size = 256
    }
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    p := &AsyncPublisher{
        next:    next,
        timeout: timeout,
        queue:   make(chan queuedEvent, size),
        done:    make(chan struct{}),
    }
    go p.run()
    return p
}

// Publish enqueues ev and returns at once.  The request context is kept
// for its values only; its cancellation does not abort delivery.
func (p *AsyncPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    p.mu.RLock()
    defer p.mu.RUnlock()
    if p.closed {
        return ErrClosed
    }
    select {
    case p.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
        return nil
    default:
        return ErrQueueFull
    }
}

func (p *AsyncPublisher) run() {
    defer close(p.done)
    for q := range p.queue {
        ctx, cancel := context.WithTimeout(q.ctx, p.timeout)
        if err := p.next.Publish(ctx, q.ev); err != nil {
            logger.FromContext(q.ctx).Warn("notification not delivered",
                append(eventFields(q.ev), zap.Error(err))...)
        }
        cancel()
    }
}

// Close stops accepting events, waits for the buffered ones to be sent or
// for ctx to end, then closes the wrapped publisher if it holds resources.
func (p *AsyncPublisher) Close(ctx context.Context) error {
    p.mu.Lock()
    if !p.closed {
        p.closed = true
        close(p.queue)
    }
    p.mu.Unlock()

    select {
    case <-p.done:
    case <-ctx.Done():
        return ctx.Err()
    }
    if c, ok := p.next.(io.Closer); ok {
        return c.Close()
    }
    return nil
}
