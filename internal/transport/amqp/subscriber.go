package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqplib "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ErrClosed is returned by Run when the broker closes the delivery stream.
var ErrClosed = errors.New("amqp delivery channel closed")

// Reloader swaps in the artifact named by version.
type Reloader interface {
	Reload(ctx context.Context, version string) error
}

// Subscriber reloads the served artifact on every Event.
type Subscriber struct {
	ch       channel
	exchange string
	reloader Reloader
	logger   *zap.Logger
}

// NewSubscriber creates a subscriber on c.
func NewSubscriber(c *Conn, exchange string, reloader Reloader, logger *zap.Logger) *Subscriber {
	return &Subscriber{ch: c.ch, exchange: exchange, reloader: reloader, logger: logger}
}

// Run binds a private queue to the exchange and handles events until ctx is
// done or the broker closes the stream. Each server gets its own queue, so
// every server sees every event.
func (s *Subscriber) Run(ctx context.Context) error {
	if err := declareExchange(s.ch, s.exchange); err != nil {
		return err
	}
	q, err := s.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := s.ch.QueueBind(q.Name, "", s.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := s.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}
	s.logger.Info("Subscribed to artifact events", zap.String("exchange", s.exchange), zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrClosed
			}
			s.handle(ctx, d)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, d amqplib.Delivery) {
	var ev Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		s.logger.Warn("Dropping malformed artifact event", zap.String("message_id", d.MessageId), zap.Error(err))
		return
	}
	if err := s.reloader.Reload(ctx, ev.Version); err != nil {
		s.logger.Error("Reload after artifact event failed", zap.String("version", ev.Version), zap.Error(err))
		return
	}
	s.logger.Info("Reloaded after artifact event", zap.String("version", ev.Version))
}
