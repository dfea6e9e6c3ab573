package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrMalformedEvent marks a delivery that can never be processed.
var ErrMalformedEvent = errors.New("malformed task event")

type WorkerConfig struct {
	NumWorkers  int
	RabbitMQURL string
	QueueNames  []string
	DedupTTL    time.Duration
}

// Dispatcher hands a decoded event to its notifiers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.TaskEvent) error
}

// Deduplicator remembers which event ids were already delivered.
type Deduplicator interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

type WorkerPool struct {
	config     WorkerConfig
	dispatcher Dispatcher
	dedup      Deduplicator
	logger     zerolog.Logger
	conn       *amqp.Connection
	ch         *amqp.Channel
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	cb         *gobreaker.CircuitBreaker
	jobChan    chan amqp.Delivery
	metrics    *WorkerMetrics
}

type WorkerMetrics struct {
	mu           sync.RWMutex
	Processed    int64
	Duplicates   int64
	Failures     int64
	ProcessTime  int64 // total milliseconds
	RequestCount int64
}

// MetricsSnapshot is a copy of the counters safe to read without locking.
type MetricsSnapshot struct {
	Processed    int64
	Duplicates   int64
	Failures     int64
	RequestCount int64
	AvgMillis    float64
}

func NewWorkerPool(
	config WorkerConfig,
	dispatcher Dispatcher,
	dedup Deduplicator,
	logger zerolog.Logger,
) *WorkerPool {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	if config.DedupTTL <= 0 {
		config.DedupTTL = 24 * time.Hour
	}

	st := gobreaker.Settings{
		Name:        "NotificationCircuitBreaker",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMalformedEvent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		config:     config,
		dispatcher: dispatcher,
		dedup:      dedup,
		logger:     logger,
		cb:         gobreaker.NewCircuitBreaker(st),
		jobChan:    make(chan amqp.Delivery, config.NumWorkers*2),
		ctx:        ctx,
		cancel:     cancel,
		metrics:    &WorkerMetrics{},
	}
}

func (wp *WorkerPool) Start() error {
	wp.logger.Info().Strs("queues", wp.config.QueueNames).Msg("starting worker pool...")

	var err error
	wp.conn, err = amqp.Dial(wp.config.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	wp.ch, err = wp.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := wp.ch.Qos(
		wp.config.NumWorkers*2, // prefetch count
		0,                      // prefetch size
		false,                  // global
	); err != nil {
		return err
	}

	for _, qName := range wp.config.QueueNames {
		msgs, err := wp.ch.Consume(
			qName, // queue
			"",    // consumer tag (auto-generated)
			false, // auto-ack (we manual ack)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("failed to consume from queue %s: %w", qName, err)
		}

		wp.wg.Add(1)
		go func(q string, delivery <-chan amqp.Delivery) {
			defer wp.wg.Done()
			for {
				select {
				case msg, ok := <-delivery:
					if !ok {
						wp.logger.Warn().Str("queue", q).Msg("delivery channel closed")
						return
					}
					select {
					case wp.jobChan <- msg:
					case <-wp.ctx.Done():
						return
					}
				case <-wp.ctx.Done():
					return
				}
			}
		}(qName, msgs)
	}

	for i := 0; i < wp.config.NumWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	go wp.monitorConnection()

	return nil
}

func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("stopping worker pool...")
	wp.cancel()

	if wp.ch != nil {
		wp.ch.Close()
	}
	if wp.conn != nil {
		wp.conn.Close()
	}

	stats := wp.Stats()
	wp.logger.Info().
		Int64("processed", stats.Processed).
		Int64("duplicates", stats.Duplicates).
		Int64("failures", stats.Failures).
		Float64("avg_ms", stats.AvgMillis).
		Msg("worker pool stopped")
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) Stats() MetricsSnapshot {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()

	snap := MetricsSnapshot{
		Processed:    wp.metrics.Processed,
		Duplicates:   wp.metrics.Duplicates,
		Failures:     wp.metrics.Failures,
		RequestCount: wp.metrics.RequestCount,
	}
	if wp.metrics.RequestCount > 0 {
		snap.AvgMillis = float64(wp.metrics.ProcessTime) / float64(wp.metrics.RequestCount)
	}
	return snap
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error().Interface("panic", r).Int("worker_id", id).Msg("worker panicked, recovering...")
		}
	}()

	for {
		select {
		case msg, ok := <-wp.jobChan:
			if !ok {
				return
			}
			wp.processMessage(msg)
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processMessage(msg amqp.Delivery) {
	startTime := time.Now()

	_, err := wp.cb.Execute(func() (interface{}, error) {
		return nil, wp.handleEvent(wp.ctx, msg.Body)
	})

	duration := time.Since(startTime).Milliseconds()
	wp.updateMetrics(err == nil, duration)

	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, ErrMalformedEvent):
		wp.logger.Error().Err(err).Str("message_id", msg.MessageId).Msg("dropping malformed event")
		msg.Nack(false, false)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		wp.logger.Warn().Msg("circuit breaker open, requeuing message")
		msg.Nack(false, true)
		time.Sleep(1 * time.Second) // prevent busy loop
	case msg.Redelivered:
		wp.logger.Error().Err(err).Str("message_id", msg.MessageId).Msg("event failed after redelivery, dropping")
		msg.Nack(false, false)
	default:
		wp.logger.Warn().Err(err).Str("message_id", msg.MessageId).Msg("event failed, requeuing")
		msg.Nack(false, true)
	}
}

// handleEvent decodes one delivery and dispatches it unless the same event
// id was already handled. A failed dispatch forgets the id so a redelivery
// is processed again.
func (wp *WorkerPool) handleEvent(ctx context.Context, body []byte) error {
	var event domain.TaskEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.EventID == uuid.Nil || event.EventType == "" {
		return fmt.Errorf("%w: missing event_id or event_type", ErrMalformedEvent)
	}

	key := "event:" + event.EventID.String()
	first, err := wp.dedup.MarkOnce(ctx, key, wp.config.DedupTTL)
	if err != nil {
		return err
	}
	if !first {
		wp.logger.Debug().Str("event_id", event.EventID.String()).Msg("duplicate event, skipping")
		wp.countDuplicate()
		return nil
	}

	if err := wp.dispatcher.Dispatch(ctx, event); err != nil {
		if forgetErr := wp.dedup.Forget(ctx, key); forgetErr != nil {
			wp.logger.Error().Err(forgetErr).Str("event_id", event.EventID.String()).Msg("failed to clear dedup marker")
		}
		return err
	}

	return nil
}

func (wp *WorkerPool) monitorConnection() {
	notifyClose := wp.conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-notifyClose:
		wp.logger.Warn().Msg("rabbitmq connection lost in worker pool")
	case <-wp.ctx.Done():
		return
	}
}

func (wp *WorkerPool) updateMetrics(success bool, duration int64) {
	wp.metrics.mu.Lock()
	defer wp.metrics.mu.Unlock()

	wp.metrics.RequestCount++
	wp.metrics.ProcessTime += duration
	if success {
		wp.metrics.Processed++
	} else {
		wp.metrics.Failures++
	}
}

func (wp *WorkerPool) countDuplicate() {
	wp.metrics.mu.Lock()
	defer wp.metrics.mu.Unlock()
	wp.metrics.Duplicates++
}
