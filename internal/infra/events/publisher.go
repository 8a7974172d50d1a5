package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"compliance_reminders/internal/domain/reminder"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RunPublisher emits run-completed events to a topic exchange with the
// routing key "run.<module>".
type RunPublisher struct {
	channel  Channel
	exchange string
}

func NewRunPublisher(ch Channel, exchange string) *RunPublisher {
	return &RunPublisher{channel: ch, exchange: exchange}
}

// Connect dials the broker, declares the exchange and returns the publisher
// together with a function closing channel and connection.
func Connect(url, exchange string) (*RunPublisher, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	closeFn := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return NewRunPublisher(ch, exchange), closeFn, nil
}

func RoutingKey(module reminder.ModuleKey) string {
	return "run." + string(module)
}

func (p *RunPublisher) PublishRunCompleted(ctx context.Context, event reminder.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		RoutingKey(event.Module),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.RunID.String(),
			Timestamp:    event.FinishedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	return nil
}
