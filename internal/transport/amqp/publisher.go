package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqplib "github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// Publisher announces published artifacts.
type Publisher struct {
	ch       channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher declares the exchange on c and returns a publisher.
func NewPublisher(c *Conn, exchange string, logger *zap.Logger) (*Publisher, error) {
	return newPublisher(c.ch, exchange, logger)
}

func newPublisher(ch channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Published sends an Event for m.
func (p *Publisher) Published(ctx context.Context, m artifact.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(Event{Version: m.Version, CreatedAt: m.CreatedAt, Rows: m.Rows, Cols: m.Cols})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.ch.Publish(p.exchange, "", false, false, amqplib.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqplib.Persistent,
		MessageId:    m.Version,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.exchange, err)
	}
	p.logger.Info("Artifact event published", zap.String("exchange", p.exchange), zap.String("version", m.Version))
	return nil
}
