package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/rs/zerolog"
)

const DefaultNotifyTimeout = 30 * time.Second

// Notifier delivers one lifecycle event to one audience.
type Notifier interface {
	Notify(ctx context.Context, event domain.TaskEvent) error
	Name() string
}

// Registry fans every event out to the notifiers registered for its type.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[domain.EventType][]Notifier
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	r := &Registry{
		notifiers: make(map[domain.EventType][]Notifier),
		timeout:   DefaultNotifyTimeout,
		logger:    logger,
	}
	return r
}

// Register subscribes n to the given event types, or to all of them when
// none are given.
func (r *Registry) Register(n Notifier, types ...domain.EventType) {
	if len(types) == 0 {
		types = domain.AllEventTypes
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range types {
		if r.hasNotifier(t, n.Name()) {
			r.logger.Warn().Str("name", n.Name()).Str("event_type", string(t)).Msg("notifier already registered")
			continue
		}
		r.notifiers[t] = append(r.notifiers[t], n)
	}
	r.logger.Info().Str("name", n.Name()).Int("event_types", len(types)).Msg("registered notifier")
}

func (r *Registry) hasNotifier(t domain.EventType, name string) bool {
	for _, existing := range r.notifiers[t] {
		if existing.Name() == name {
			return true
		}
	}
	return false
}

// Dispatch runs every notifier subscribed to the event type and joins their
// errors. An event type nobody listens to is not an error.
func (r *Registry) Dispatch(ctx context.Context, event domain.TaskEvent) error {
	r.mu.RLock()
	targets := append([]Notifier(nil), r.notifiers[event.EventType]...)
	r.mu.RUnlock()

	if len(targets) == 0 {
		r.logger.Debug().Str("event_type", string(event.EventType)).Msg("no notifier registered for event type")
		return nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var errs []error
	for _, n := range targets {
		start := time.Now()
		err := n.Notify(timeoutCtx, event)
		duration := time.Since(start)

		logEvent := r.logger.Info()
		if err != nil {
			logEvent = r.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}

		logEvent.
			Str("event_id", event.EventID.String()).
			Str("task_id", event.TaskID.String()).
			Str("notifier", n.Name()).
			Dur("duration", duration).
			Msg("notification finished")
	}

	return errors.Join(errs...)
}
