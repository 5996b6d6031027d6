package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/finvera/expense-approval/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Dispatcher routes domain events to registered handlers
type Dispatcher interface {
	// Subscribe registers a named handler for an event type
	Subscribe(eventType event.Type, name string, handler Handler)

	// Dispatch sends the event to all registered handlers synchronously,
	// in registration order; the first handler error aborts the chain
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync sends the event to handlers without waiting for them
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

type namedHandler struct {
	name    string
	handler Handler
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]namedHandler
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a new event dispatcher
func New(logger Logger) Dispatcher {
	return &eventDispatcher{
		handlers: make(map[event.Type][]namedHandler),
		logger:   logger,
	}
}

// Subscribe registers a named handler for an event type
func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], namedHandler{name: name, handler: handler})

	if d.logger != nil {
		d.logger.Info("Event handler registered",
			"event_type", eventType,
			"handler_name", name,
		)
	}
}

// Dispatch sends the event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := d.safeExecute(ctx, evt, h); err != nil {
			if d.logger != nil {
				d.logger.Error("Event handler failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", h.name,
					"error", err,
				)
			}
			return fmt.Errorf("handler %s failed: %w", h.name, err)
		}
	}

	return nil
}

// DispatchAsync sends the event to handlers without waiting for them
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		return
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, h := range handlers {
		d.wg.Add(1)
		go func(h namedHandler) {
			defer d.wg.Done()

			if err := d.safeExecute(ctx, evt, h); err != nil && d.logger != nil {
				d.logger.Error("Async event handler failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", h.name,
					"error", err,
				)
			}
		}(h)
	}
}

// safeExecute runs a handler, converting panics into errors
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, h namedHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.handler(ctx, evt)
}

// Close shuts down the dispatcher and waits for in-flight async handlers
func (d *eventDispatcher) Close() error {
	d.closed.Store(true)
	d.wg.Wait()
	return nil
}
