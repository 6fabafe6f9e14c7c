package queue

import (
	"context"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher delivers booking events.  Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// NopPublisher discards every event.  It is used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }

// dialTimeout bounds the TCP connect and AMQP handshake when the caller's
// context carries no earlier deadline.
const dialTimeout = 5 * time.Second

// AMQPPublisher publishes events to a durable RabbitMQ queue through the
// default exchange.  The connection is opened lazily and re-dialled after
// any failure, so a broker outage never blocks server startup.
type AMQPPublisher struct {
	url   string
	queue string
	log   *zap.Logger

	// sem is a one-slot semaphore guarding conn and ch; unlike a mutex it
	// can be abandoned when the caller's context ends.
	sem  chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for queue at url.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{url: url, queue: queue, log: log, sem: make(chan struct{}, 1)}
}

func (p *AMQPPublisher) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AMQPPublisher) release() { <-p.sem }

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.acquire(ctx); err != nil {
		return fmt.Errorf("publisher busy: %w", err)
	}
	defer p.release()

	ch, err := p.channel(ctx)
	if err != nil {
		p.log.Warn("rabbitmq: channel unavailable", zap.Error(err))
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("type", ev.Type), zap.Error(err))
		p.reset()
		return err
	}
	return nil
}

// channel returns an open channel with the queue declared, dialling when
// needed.  Callers hold the semaphore.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := dial(ctx, p.url)
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		p.reset()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		p.reset()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.sem <- struct{}{}
	defer p.release()
	p.reset()
	return nil
}

// dial opens an AMQP connection whose TCP connect and handshake end no
// later than ctx's deadline or dialTimeout, whichever comes first.
func dial(ctx context.Context, url string) (*amqp.Connection, error) {
	deadline := time.Now().Add(dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Deadline: deadline}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// cleared by the client once the handshake completes
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}
