// Package eventbus carries runtime lifecycle events from the components
// that produce them to whoever subscribed.
package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChannelEventBus dispatches events through a buffered channel drained by a
// fixed pool of workers. Handlers that fail are retried a configurable
// number of times before the failure is logged and dropped.
type ChannelEventBus struct {
	mutex    sync.RWMutex
	byType   map[EventType]map[string]EventHandler
	catchAll map[string]EventHandler
	closed   bool

	queue chan envelope
	done  chan struct{}
	wg    sync.WaitGroup

	bufferSize    int
	workerCount   int
	maxRetries    int
	retryInterval time.Duration
}

// envelope pairs an event with the context it was published under, so
// delivery can honor the publisher's cancellation.
type envelope struct {
	ctx   context.Context
	event Event
}

// ChannelEventBusOption configures the channel-based event bus.
type ChannelEventBusOption func(*ChannelEventBus)

// WithBufferSize sets the event queue capacity.
func WithBufferSize(size int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		if size > 0 {
			eb.bufferSize = size
		}
	}
}

// WithWorkerCount sets how many workers drain the queue.
func WithWorkerCount(count int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		if count > 0 {
			eb.workerCount = count
		}
	}
}

// WithRetries sets how often a failing handler is retried and the pause
// between attempts.
func WithRetries(maxRetries int, retryInterval time.Duration) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.maxRetries = maxRetries
		eb.retryInterval = retryInterval
	}
}

// NewChannelEventBus creates the bus and starts its worker pool.
func NewChannelEventBus(options ...ChannelEventBusOption) *ChannelEventBus {
	eb := &ChannelEventBus{
		byType:   make(map[EventType]map[string]EventHandler),
		catchAll: make(map[string]EventHandler),
		done:     make(chan struct{}),

		bufferSize:    100,
		workerCount:   5,
		maxRetries:    3,
		retryInterval: time.Millisecond * 100,
	}

	for _, option := range options {
		option(eb)
	}

	eb.queue = make(chan envelope, eb.bufferSize)

	for i := 0; i < eb.workerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}

	return eb
}

func (eb *ChannelEventBus) worker() {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.done:
			return
		case env := <-eb.queue:
			if env.ctx.Err() != nil {
				continue
			}
			for _, handler := range eb.handlersFor(env.event.Type()) {
				eb.deliver(env.ctx, env.event, handler)
			}
		}
	}
}

// handlersFor snapshots the matching handlers under the read lock, so
// handlers are free to subscribe or unsubscribe from within their own call.
func (eb *ChannelEventBus) handlersFor(eventType EventType) []EventHandler {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	handlers := make([]EventHandler, 0, len(eb.byType[eventType])+len(eb.catchAll))
	for _, handler := range eb.byType[eventType] {
		handlers = append(handlers, handler)
	}
	for _, handler := range eb.catchAll {
		handlers = append(handlers, handler)
	}
	return handlers
}

// deliver runs one handler, retrying on failure until the retry budget is
// spent or the publish context ends.
func (eb *ChannelEventBus) deliver(ctx context.Context, event Event, handler EventHandler) {
	var err error

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		if err = handler(ctx, event); err == nil {
			return
		}

		if attempt >= eb.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(eb.retryInterval):
		}
	}

	log.Printf("Event handler failed after %d retries (event_type: %s): %v",
		eb.maxRetries, event.Type(), err)
}

// Publish enqueues an event for delivery to the subscribed handlers.
func (eb *ChannelEventBus) Publish(ctx context.Context, event Event) error {
	if eb.isClosed() {
		return fmt.Errorf("event bus is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-eb.done:
		return fmt.Errorf("event bus is closed")
	case eb.queue <- envelope{ctx: ctx, event: event}:
		return nil
	}
}

// Subscribe registers a handler for the given event types. The returned
// subscription ID covers all of them.
func (eb *ChannelEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}

	subscriptionID := uuid.New().String()
	for _, eventType := range eventTypes {
		if _, exists := eb.byType[eventType]; !exists {
			eb.byType[eventType] = make(map[string]EventHandler)
		}
		eb.byType[eventType][subscriptionID] = handler
	}

	return subscriptionID, nil
}

// SubscribeAll registers a handler that sees every event regardless of type.
func (eb *ChannelEventBus) SubscribeAll(handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}

	subscriptionID := uuid.New().String()
	eb.catchAll[subscriptionID] = handler

	return subscriptionID, nil
}

// Unsubscribe removes a subscription by ID.
func (eb *ChannelEventBus) Unsubscribe(subscriptionID string) error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return fmt.Errorf("event bus is closed")
	}

	delete(eb.catchAll, subscriptionID)
	for eventType := range eb.byType {
		delete(eb.byType[eventType], subscriptionID)
	}

	return nil
}

// Close stops the workers and rejects further publishes. Events still
// sitting in the queue are dropped. Idempotent.
func (eb *ChannelEventBus) Close() error {
	eb.mutex.Lock()
	if eb.closed {
		eb.mutex.Unlock()
		return nil
	}
	eb.closed = true
	eb.mutex.Unlock()

	close(eb.done)
	eb.wg.Wait()

	return nil
}

func (eb *ChannelEventBus) isClosed() bool {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	return eb.closed
}
