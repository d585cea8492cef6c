package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultPrefetch = 16

// Store persists consumed entries.
type Store interface {
	Write(ctx context.Context, e repository.Entry) error
}

// Consumer drains the audit queue into a Store.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *logger.Logger
}

func NewConsumer(url, exchange, queue string, log *logger.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, BindingKey, exchange, false, nil); err != nil {
		return fail("bind "+BindingKey, err)
	}
	if err := ch.Qos(defaultPrefetch, 0, false); err != nil {
		return fail("set qos", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name, log: log}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
// Undecodable messages are dropped; store failures are requeued.
func (c *Consumer) Run(ctx context.Context, store Store) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("audit delivery channel closed")
			}
			c.handle(ctx, store, d)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) handle(ctx context.Context, store Store, d amqp.Delivery) {
	handleDelivery(ctx, store, d.Body, d.RoutingKey, d, c.log)
}

func handleDelivery(ctx context.Context, store Store, body []byte, routingKey string, ack acknowledger, log *logger.Logger) {
	var e repository.Entry
	if err := json.Unmarshal(body, &e); err != nil || !repository.ValidLevel(e.Level) {
		log.Warn("audit message rejected", "routingKey", routingKey, "error", err)
		_ = ack.Nack(false, false)
		return
	}
	if err := store.Write(ctx, e); err != nil {
		log.Error("audit message not stored; requeued", "routingKey", routingKey, "error", err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
