package queue

import (
	"context"
	"sync"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/rs/zerolog"
)

const (
	DefaultEmitterBuffer  = 256
	DefaultPublishTimeout = 10 * time.Second
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.TaskEvent) error
}

// AsyncEmitter is the outbound event channel of the lifecycle service. Emit
// never blocks; a background goroutine hands events to the publisher and
// only logs publish failures.
type AsyncEmitter struct {
	publisher      EventPublisher
	events         chan domain.TaskEvent
	logger         zerolog.Logger
	publishTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
	wg             sync.WaitGroup
}

type EmitterConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
}

func NewAsyncEmitter(publisher EventPublisher, config EmitterConfig, logger zerolog.Logger) *AsyncEmitter {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultEmitterBuffer
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublishTimeout
	}

	e := &AsyncEmitter{
		publisher:      publisher,
		events:         make(chan domain.TaskEvent, config.BufferSize),
		logger:         logger,
		publishTimeout: config.PublishTimeout,
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// Emit queues event for publishing and reports whether it was accepted.
func (e *AsyncEmitter) Emit(event domain.TaskEvent) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.logger.Warn().Str("event_id", event.EventID.String()).Msg("emitter closed, dropping event")
		return false
	}

	select {
	case e.events <- event:
		return true
	default:
		e.logger.Warn().
			Str("event_id", event.EventID.String()).
			Str("event_type", string(event.EventType)).
			Str("task_id", event.TaskID.String()).
			Msg("event buffer full, dropping event")
		return false
	}
}

// Close stops accepting events and waits for the buffered ones to be published.
func (e *AsyncEmitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.events)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *AsyncEmitter) run() {
	defer e.wg.Done()

	for event := range e.events {
		e.publish(event)
	}
}

func (e *AsyncEmitter) publish(event domain.TaskEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("event_id", event.EventID.String()).Msg("event publisher panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Error().
			Err(err).
			Str("event_id", event.EventID.String()).
			Str("event_type", string(event.EventType)).
			Str("task_id", event.TaskID.String()).
			Msg("failed to publish task event")
		return
	}

	e.logger.Debug().
		Str("event_id", event.EventID.String()).
		Str("event_type", string(event.EventType)).
		Msg("task event published")
}
