package amqp

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

// Publisher sends persistent messages to one durable queue. On connection loss
// it reconnects in the background with a fixed delay; publishes made during the
// disconnected window fail fast with ErrNotConnected so the caller's loop can
// drop and re-derive on its next cycle instead of blocking.
type Publisher struct {
	cfg *Config

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel

	done      chan struct{}
	closeOnce sync.Once
}

// NewPublisher connects to the broker and declares the durable queue.
func NewPublisher(opts ...Option) (*Publisher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Publisher{cfg: cfg, done: make(chan struct{})}
	initMetricsOnce()

	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("amqp publisher: %w", err)
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", p.cfg.Queue, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.mu.Unlock()

	go p.watch(conn)
	log.Printf("amqp publisher: connected queue=%s", p.cfg.Queue)
	return nil
}

// watch blocks until the given connection dies, then reconnects forever with
// the fixed delay.
func (p *Publisher) watch(conn *amqp091.Connection) {
	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))

	select {
	case <-p.done:
		return
	case err := <-closed:
		if err == nil {
			// Clean shutdown via Close.
			return
		}
		log.Printf("amqp publisher: connection lost: %v", err)
	}

	p.mu.Lock()
	p.conn = nil
	p.ch = nil
	p.mu.Unlock()

	for {
		select {
		case <-p.done:
			return
		case <-time.After(p.cfg.ReconnectDelay):
		}

		reconnectsTotal.WithLabelValues("publisher").Inc()
		if err := p.connect(); err != nil {
			log.Printf("amqp publisher: reconnect failed, retrying in %s: %v", p.cfg.ReconnectDelay, err)
			continue
		}
		return
	}
}

// Publish sends one message, marked persistent, to the queue. An error means
// the outcome is unknown, not that delivery definitely failed; a later
// redelivery of the same message id must therefore be tolerated downstream.
func (p *Publisher) Publish(ctx context.Context, messageID string, body []byte) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	if ch == nil {
		publishedTotal.WithLabelValues(p.cfg.Queue, "disconnected").Inc()
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		publishedTotal.WithLabelValues(p.cfg.Queue, "error").Inc()
		return fmt.Errorf("publish to %s: %w", p.cfg.Queue, err)
	}

	publishedTotal.WithLabelValues(p.cfg.Queue, "ok").Inc()
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.conn != nil {
			err = p.conn.Close()
			p.conn = nil
			p.ch = nil
		}
	})
	return err
}
