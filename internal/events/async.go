package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"coderoom/internal/metrics"
	"coderoom/internal/models"
	"coderoom/internal/utils"
)

const (
	defaultQueueSize      = 1024
	defaultPublishTimeout = 2 * time.Second
)

var (
	ErrQueueFull       = errors.New("events: publish queue full")
	ErrPublisherClosed = errors.New("events: publisher closed")
)

// AsyncPublisher queues events and hands them to the wrapped Publisher from a
// single goroutine, so callers never wait on the broker. Events are delivered
// in the order they were queued.
type AsyncPublisher struct {
	inner   Publisher
	log     *utils.Logger
	timeout time.Duration

	mu     sync.RWMutex
	queue  chan models.RoomEvent
	closed bool
	done   chan struct{}
}

func NewAsyncPublisher(inner Publisher, log *utils.Logger, size int, timeout time.Duration) *AsyncPublisher {
	if size <= 0 {
		size = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	p := &AsyncPublisher{
		inner:   inner,
		log:     log,
		timeout: timeout,
		queue:   make(chan models.RoomEvent, size),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues without blocking. A full queue drops the event.
func (p *AsyncPublisher) Publish(_ context.Context, event models.RoomEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		metrics.IncEventsDropped()
		return ErrQueueFull
	}
}

// Close flushes queued events, then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.inner.Close()
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.inner.Publish(ctx, event); err != nil {
			p.log.Warn("room event publish failed", "type", event.Type, "room", event.RoomID, "error", err)
		}
		cancel()
	}
}
