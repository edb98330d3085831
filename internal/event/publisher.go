package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultExchange is the topic exchange quiz events are published to.
const DefaultExchange = "quiz.events"

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher publishes quiz events to a RabbitMQ topic exchange, using the event type as routing key.
// A publisher built without a URI is disabled and drops events.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      logrus.FieldLogger
	clock    func() time.Time

	mu sync.Mutex
}

func NewPublisher(uri, exchange string, log logrus.FieldLogger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Publisher{exchange: exchange, log: log, clock: time.Now}
	if uri == "" {
		log.Warn("rabbitmq uri is empty, event publishing is disabled")
		return p, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.WithField("exchange", exchange).Info("event publisher initialized")
	p.conn, p.channel, p.enabled = conn, channel, true
	return p, nil
}

// Enabled reports whether events reach a broker.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := NewEnvelope(eventType, payload, p.clock())
	if err != nil {
		return err
	}
	if !p.enabled {
		p.log.WithField("event", eventType).Debug("event publishing disabled, skipping event")
		return nil
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.clock(),
			Body:         body,
			Headers:      amqp091.Table{"event_type": eventType},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.log.WithError(err).Warn("error closing rabbitmq channel")
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("error closing rabbitmq connection: %w", err)
	}
	return nil
}

// NewEnvelope encodes payload into the JSON body of an event.
func NewEnvelope(eventType string, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	body, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Payload:    raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return body, nil
}
