package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ReadingAcceptedEvent is emitted after a reading update has been
// persisted.
type ReadingAcceptedEvent struct {
	FlowmeterID  string             `json:"flowmeter_id"`
	SerialNumber string             `json:"serial_number"`
	Timestamp    string             `json:"timestamp"`
	Metrics      map[string]float64 `json:"metrics"`
}

// WarningFiredEvent is emitted after a threshold warning has been recorded.
type WarningFiredEvent struct {
	WarningID   string  `json:"warning_id"`
	FlowmeterID string  `json:"flowmeter_id"`
	UserID      string  `json:"user_id"`
	Metric      string  `json:"metric"`
	Severity    string  `json:"severity"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Timestamp   string  `json:"timestamp"`
}

// Publisher emits monitoring events. Publish failures are the caller's to
// log; they must never fail the originating request.
type Publisher interface {
	PublishReadingAccepted(ctx context.Context, event ReadingAcceptedEvent) error
	PublishWarningFired(ctx context.Context, event WarningFiredEvent) error
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	channel           *amqp.Channel
	exchange          string
	readingRoutingKey string
	warningRoutingKey string
	logger            *zap.Logger
}

// NewAMQPPublisher declares the exchange and returns a publisher bound to
// it.
func NewAMQPPublisher(conn *Connection, exchange, readingRoutingKey, warningRoutingKey string, logger *zap.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{
		channel:           ch,
		exchange:          exchange,
		readingRoutingKey: readingRoutingKey,
		warningRoutingKey: warningRoutingKey,
		logger:            logger,
	}, nil
}

func (p *AMQPPublisher) PublishReadingAccepted(ctx context.Context, event ReadingAcceptedEvent) error {
	return p.publish(ctx, p.readingRoutingKey, event)
}

func (p *AMQPPublisher) PublishWarningFired(ctx context.Context, event WarningFiredEvent) error {
	return p.publish(ctx, p.warningRoutingKey, event)
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", zap.String("routing_key", routingKey))
	return nil
}

// Close closes the publisher channel.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}

// NoopPublisher discards events. Used when no RabbitMQ URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishReadingAccepted(ctx context.Context, event ReadingAcceptedEvent) error {
	return nil
}

func (NoopPublisher) PublishWarningFired(ctx context.Context, event WarningFiredEvent) error {
	return nil
}
