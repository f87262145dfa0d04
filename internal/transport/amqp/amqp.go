// Package amqp announces published artifacts on a fanout exchange and lets
// servers reload when one arrives.
package amqp

import (
	"fmt"
	"time"

	amqplib "github.com/streadway/amqp"
)

// Event is the message body announcing a published artifact.
type Event struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
}

// channel is the subset of *amqplib.Channel used here.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqplib.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqplib.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqplib.Table) (amqplib.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqplib.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqplib.Table) (<-chan amqplib.Delivery, error)
	Close() error
}

// Conn is a broker connection with one channel.
type Conn struct {
	conn *amqplib.Connection
	ch   *amqplib.Channel
}

// Dial connects to the broker and opens a channel.
func Dial(url string) (*Conn, error) {
	conn, err := amqplib.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &Conn{conn: conn, ch: ch}, nil
}

// Close closes the channel and the connection.
func (c *Conn) Close() error {
	_ = c.ch.Close()
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("amqp close: %w", err)
	}
	return nil
}

func declareExchange(ch channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqplib.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}
