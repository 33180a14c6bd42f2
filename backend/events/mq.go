package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeMatchEvents = "match_events"
	ExchangeTypeFanout  = "fanout"
)

// RabbitMQ is a single connection with one publishing channel.
type RabbitMQ struct {
	conn *amqp.Connection

	mu      sync.Mutex
	channel *amqp.Channel
}

func Dial(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return &RabbitMQ{conn: conn, channel: ch}, nil
}

func (mq *RabbitMQ) DeclareExchange(name, exchangeType string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.channel.ExchangeDeclare(
		name,
		exchangeType,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// Publish sends body as JSON. amqp channels are not safe for concurrent
// publishing, hence the mutex.
func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (mq *RabbitMQ) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if err := mq.channel.Close(); err != nil && !mq.conn.IsClosed() {
		mq.conn.Close()
		return err
	}
	return mq.conn.Close()
}
