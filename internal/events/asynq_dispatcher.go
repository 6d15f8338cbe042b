package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const outboxQueue = "outbox"

// redisConnOptWrapper lets asynq reuse the service's Redis client.
type redisConnOptWrapper struct {
	client redis.UniversalClient
}

func (r *redisConnOptWrapper) MakeRedisClient() interface{} {
	return r.client
}

// AsynqOptions tunes AsynqDispatcher.
type AsynqOptions struct {
	Concurrency int
	MaxAttempts int
	Timeout     time.Duration
	Observer    DeliveryObserver
}

// AsynqDispatcher persists events as asynq tasks in Redis, so intents survive a restart
// and are retried with backoff by the asynq server.
type AsynqDispatcher struct {
	registry
	opts   AsynqOptions
	logger *zap.Logger
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux

	muxMu      sync.Mutex
	registered map[EventType]bool
}

// NewAsynqDispatcher creates a Redis-backed outbox on an existing client.
func NewAsynqDispatcher(rdb redis.UniversalClient, opts AsynqOptions, logger *zap.Logger) *AsynqDispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	redisOpt := &redisConnOptWrapper{client: rdb}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     opts.Concurrency,
		Queues:          map[string]int{outboxQueue: 1},
		Logger:          logger.Sugar(),
		LogLevel:        asynq.WarnLevel,
		RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
		ShutdownTimeout: 10 * time.Second,
	})
	return &AsynqDispatcher{
		registry:   newRegistry(),
		opts:       opts,
		logger:     logger,
		client:     asynq.NewClient(redisOpt),
		server:     server,
		mux:        asynq.NewServeMux(),
		registered: map[EventType]bool{},
	}
}

// Publish enqueues the event as a task keyed by the event id.
func (d *AsynqDispatcher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	task := asynq.NewTask(string(event.Type), data)
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(outboxQueue),
		asynq.TaskID(event.ID),
		asynq.MaxRetry(d.opts.MaxAttempts-1),
		asynq.Timeout(d.opts.Timeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Subscribe registers handler and routes the event type's tasks to it.
func (d *AsynqDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.registry.Subscribe(eventType, handler)

	d.muxMu.Lock()
	defer d.muxMu.Unlock()
	if d.registered[eventType] {
		return
	}
	d.registered[eventType] = true
	d.mux.HandleFunc(string(eventType), d.process)
}

func (d *AsynqDispatcher) process(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}
	var errs []error
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if err != nil && retried >= maxRetry {
		d.logger.Error("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Int("attempts", retried+1),
			zap.Error(err),
		)
	}
	if d.opts.Observer != nil && (err == nil || retried >= maxRetry) {
		d.opts.Observer(event.Type, retried+1, err)
	}
	return err
}

// Start runs the asynq server in the background.
func (d *AsynqDispatcher) Start() error {
	return d.server.Start(d.mux)
}

// Stop shuts the server down and closes the client.
func (d *AsynqDispatcher) Stop(_ context.Context) error {
	d.server.Shutdown()
	return d.client.Close()
}
