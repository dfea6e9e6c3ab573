package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"maintenance-task-service/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	DefaultExchangeName = "task-events"
	ExchangeType        = "topic"
	QueueNotifications  = "task-events.notifications"
	RoutingKeyAllEvents = "task.#"
	PublishMaxRetries   = 3
)

type RabbitMQPublisher struct {
	url        string
	exchange   string
	queues     []string
	conn       *amqp.Connection
	ch         *amqp.Channel
	notifyChan chan *amqp.Error
	mu         sync.RWMutex
	isClosed   bool
}

// NewRabbitMQPublisher connects and declares the topic exchange plus one
// queue per name, each bound to every lifecycle event.
func NewRabbitMQPublisher(url, exchange string, queues []string) (*RabbitMQPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchangeName
	}
	if len(queues) == 0 {
		queues = []string{QueueNotifications}
	}

	p := &RabbitMQPublisher{
		url:      url,
		exchange: exchange,
		queues:   queues,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isClosed {
		return errors.New("publisher is closed")
	}

	var err error
	log.Info().Str("exchange", p.exchange).Msg("connecting to rabbitmq")

	p.conn, err = amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	p.ch, err = p.conn.Channel()
	if err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := p.setupTopology(); err != nil {
		p.ch.Close()
		p.conn.Close()
		return err
	}

	if err := p.ch.Confirm(false); err != nil {
		p.ch.Close()
		p.conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	p.notifyChan = make(chan *amqp.Error)
	p.conn.NotifyClose(p.notifyChan)

	go p.handleReconnection()

	return nil
}

func (p *RabbitMQPublisher) setupTopology() error {
	err := p.ch.ExchangeDeclare(
		p.exchange,   // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, qName := range p.queues {
		_, err := p.ch.QueueDeclare(
			qName, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", qName, err)
		}

		err = p.ch.QueueBind(
			qName,
			RoutingKeyAllEvents,
			p.exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", qName, err)
		}
	}

	return nil
}

func (p *RabbitMQPublisher) handleReconnection() {
	for range p.notifyChan {
		p.mu.Lock()
		if p.isClosed {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		log.Warn().Msg("rabbitmq connection lost, attempting to reconnect...")

		for {
			err := p.connect()
			if err == nil {
				log.Info().Msg("rabbitmq reconnected successfully")
				return
			}

			log.Error().Err(err).Msg("failed to reconnect to rabbitmq, retrying in 5s...")
			time.Sleep(5 * time.Second)
		}
	}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event domain.TaskEvent) error {
	return p.publishWithRetry(ctx, event, 0)
}

func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, event domain.TaskEvent, retries int) error {
	p.mu.RLock()
	if p.conn == nil || p.conn.IsClosed() {
		p.mu.RUnlock()
		if retries < PublishMaxRetries {
			if err := backoff(ctx, retries); err != nil {
				return err
			}
			return p.publishWithRetry(ctx, event, retries+1)
		}
		return errors.New("rabbitmq connection not available")
	}
	ch := p.ch
	p.mu.RUnlock()

	msgBody, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		RoutingKey(event.EventType),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         msgBody,
			Timestamp:    event.Timestamp,
			MessageId:    event.EventID.String(),
			Type:         string(event.EventType),
		},
	)

	if err != nil {
		if retries < PublishMaxRetries {
			log.Warn().Err(err).Int("retry", retries).Str("event_id", event.EventID.String()).Msg("failed to publish, retrying...")
			if err := backoff(ctx, retries); err != nil {
				return err
			}
			return p.publishWithRetry(ctx, event, retries+1)
		}
		return err
	}

	ok, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for publisher confirmation: %w", err)
	}
	if !ok {
		return errors.New("rabbitmq did not confirm event publication")
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isClosed = true

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}
	return nil
}

// RoutingKey maps TASK_ESCALATED to task.escalated.
func RoutingKey(eventType domain.EventType) string {
	return "task." + strings.ToLower(strings.TrimPrefix(string(eventType), "TASK_"))
}

func backoff(ctx context.Context, retries int) error {
	wait := time.Duration(math.Pow(2, float64(retries))) * time.Second
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
