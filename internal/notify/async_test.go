package notify

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/store-reservation/internal/logger"
)

// gatedPublisher blocks every Publish until release is closed.
type gatedPublisher struct {
    release chan struct{}
    err     error

    mu     sync.Mutex
    got    []ReservationEvent
    closed bool
}

func newGated() *gatedPublisher { return &gatedPublisher{release: make(chan struct{})} }

func (g *gatedPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    select {
    case <-g.release:
    case <-ctx.Done():
        return ctx.Err()
    }
    g.mu.Lock()
    defer g.mu.Unlock()
    g.got = append(g.got, ev)
    return g.err
}

func (g *gatedPublisher) Close() error {
    g.mu.Lock()
    defer g.mu.Unlock()
    g.closed = true
    return nil
}

func (g *gatedPublisher) delivered() int {
    g.mu.Lock()
    defer g.mu.Unlock()
    return len(g.got)
}

func TestAsyncPublisher_PublishDoesNotWaitForBroker(t *testing.T) {
    inner := newGated()
    p := NewAsync(inner, 4, time.Minute)

    start := time.Now()
    require.NoError(t, p.Publish(context.Background(), sampleEvent()))
    assert.Less(t, time.Since(start), 100*time.Millisecond)
    assert.Zero(t, inner.delivered())

    close(inner.release)
    require.NoError(t, p.Close(context.Background()))
    assert.Equal(t, 1, inner.delivered())
    assert.True(t, inner.closed)
}

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
    inner := newGated()
    p := NewAsync(inner, 1, time.Minute)
    ctx := context.Background()

    // the first event is taken by the worker, the second fills the buffer
    require.NoError(t, p.Publish(ctx, sampleEvent()))
    require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, 5*time.Millisecond)
    require.NoError(t, p.Publish(ctx, sampleEvent()))
    assert.ErrorIs(t, p.Publish(ctx, sampleEvent()), ErrQueueFull)

    close(inner.release)
    require.NoError(t, p.Close(ctx))
    assert.Equal(t, 2, inner.delivered())
}

func TestAsyncPublisher_RequestCancellationDoesNotAbortDelivery(t *testing.T) {
    inner := newGated()
    p := NewAsync(inner, 4, time.Minute)

    ctx, cancel := context.WithCancel(context.Background())
    require.NoError(t, p.Publish(ctx, sampleEvent()))
    cancel()

    close(inner.release)
    require.NoError(t, p.Close(context.Background()))
    assert.Equal(t, 1, inner.delivered())
}

func TestAsyncPublisher_LogsDeliveryFailure(t *testing.T) {
    core, logs := observer.New(zap.WarnLevel)
    ctx := logger.WithContext(context.Background(), zap.New(core))
    inner := newGated()
    inner.err = errors.New("broker down")
    close(inner.release)

    p := NewAsync(inner, 4, time.Minute)
    require.NoError(t, p.Publish(ctx, sampleEvent()))
    require.NoError(t, p.Close(context.Background()))

    require.Equal(t, 1, logs.Len())
    assert.Equal(t, "notification not delivered", logs.All()[0].Message)
}

func TestAsyncPublisher_Close(t *testing.T) {
    inner := newGated()
    p := NewAsync(inner, 4, time.Minute)
    require.NoError(t, p.Publish(context.Background(), sampleEvent()))

    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
    assert.ErrorIs(t, p.Publish(context.Background(), sampleEvent()), ErrClosed)

    close(inner.release)
    require.NoError(t, p.Close(context.Background()))
    assert.Equal(t, 1, inner.delivered())
}
