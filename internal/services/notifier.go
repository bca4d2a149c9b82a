package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

type EventType string

const (
	EventAnalysisCreated EventType = "analysis.created"
	EventAnalysisUpdated EventType = "analysis.updated"
	EventAnalysisDeleted EventType = "analysis.deleted"
)

// AnalysisEvent is published after the owning transaction commits.
type AnalysisEvent struct {
	Type        EventType `json:"type"`
	AnalysisID  string    `json:"analysis_id"`
	JobID       string    `json:"job_id"`
	Title       string    `json:"title,omitempty"`
	Candidates  int       `json:"candidates"`
	FailedCount int       `json:"failed_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type EventNotifier interface {
	Publish(ctx context.Context, event AnalysisEvent) error
	Close() error
}

type amqpNotifier struct {
	conn     *amqp.Connection
	exchange string
}

// NewAMQPNotifier dials RabbitMQ and declares a durable topic exchange.
func NewAMQPNotifier(url, exchange string) (EventNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &amqpNotifier{conn: conn, exchange: exchange}, nil
}

func (n *amqpNotifier) Publish(_ context.Context, event AnalysisEvent) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return ch.Publish(
		n.exchange,
		string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

func (n *amqpNotifier) Close() error {
	return n.conn.Close()
}

type noopNotifier struct{}

func NewNoopNotifier() EventNotifier {
	return noopNotifier{}
}

func (noopNotifier) Publish(context.Context, AnalysisEvent) error { return nil }

func (noopNotifier) Close() error { return nil }
