package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the outbox buffer has no room.
var ErrQueueFull = errors.New("outbox queue full")

// ErrStopped is returned by Publish after the dispatcher was stopped.
var ErrStopped = errors.New("outbox stopped")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// Runner is a dispatcher with background delivery.
type Runner interface {
	Dispatcher
	Start() error
	Stop(ctx context.Context) error
}

// DeliveryObserver is told the outcome of every final delivery attempt.
type DeliveryObserver func(eventType EventType, attempts int, err error)

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func newRegistry() registry {
	return registry{listeners: make(map[EventType][]EventHandler)}
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// syncDispatcher invokes handlers inline. It backs the sweep CLI command and tests.
type syncDispatcher struct {
	registry
	logger *zap.Logger
}

// NewSyncDispatcher creates a dispatcher that delivers during Publish.
func NewSyncDispatcher(logger *zap.Logger) Dispatcher {
	return &syncDispatcher{registry: newRegistry(), logger: logger}
}

// Publish synchronously invokes handlers for the given event.
func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// AsyncOptions tunes AsyncDispatcher.
type AsyncOptions struct {
	Workers     int
	BufferSize  int
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	Observer    DeliveryObserver
}

// AsyncDispatcher delivers events from a buffered channel on a fixed pool of workers.
// Publish never waits for delivery.
type AsyncDispatcher struct {
	registry
	opts   AsyncOptions
	logger *zap.Logger
	queue  chan Event

	stateMu sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

// NewAsyncDispatcher creates an in-process outbox.
func NewAsyncDispatcher(opts AsyncOptions, logger *zap.Logger) *AsyncDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &AsyncDispatcher{
		registry: newRegistry(),
		opts:     opts,
		logger:   logger,
		queue:    make(chan Event, opts.BufferSize),
	}
}

// Publish enqueues the event without blocking.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers.
func (d *AsyncDispatcher) Start() error {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.started {
		return nil
	}
	d.started = true
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return nil
}

// Stop refuses new events and waits for queued ones to drain, or for ctx to expire.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.stateMu.Lock()
	if d.stopped {
		d.stateMu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.stateMu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		for _, handler := range d.handlers(event.Type) {
			d.deliver(event, handler)
		}
	}
}

func (d *AsyncDispatcher) deliver(event Event, handler EventHandler) {
	var err error
	attempt := 0
	for attempt < d.opts.MaxAttempts {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		err = handler(ctx, event)
		cancel()
		if err == nil {
			break
		}
		if attempt < d.opts.MaxAttempts {
			time.Sleep(d.opts.Backoff * time.Duration(attempt))
		}
	}
	if err != nil {
		d.logger.Error("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("subject_id", event.SubjectID),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}
	if d.opts.Observer != nil {
		d.opts.Observer(event.Type, attempt, err)
	}
}
