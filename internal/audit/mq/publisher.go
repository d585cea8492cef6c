// Package mq carries audit entries over a RabbitMQ topic exchange.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"vehicle_inspection_backend/internal/audit/repository"

	amqp "github.com/rabbitmq/amqp091-go"
)

const routingPrefix = "audit."

// BindingKey matches every routing key produced by RoutingKey.
const BindingKey = routingPrefix + "#"

// RoutingKey is audit.<service>.<level>, lower-cased.
func RoutingKey(e repository.Entry) string {
	service := strings.ToLower(strings.TrimSpace(e.Service))
	if service == "" {
		service = "unknown"
	}
	return routingPrefix + service + "." + strings.ToLower(e.Level)
}

// Publisher writes audit entries to a durable topic exchange.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Write publishes e as a persistent JSON message.
func (p *Publisher) Write(ctx context.Context, e repository.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
