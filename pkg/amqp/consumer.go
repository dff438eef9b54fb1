package amqp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp091 "github.com/rabbitmq/amqp091-go"
)

// DeliveryHandler processes the payload of one queue delivery.
//
// Return values drive settlement: nil acks the delivery; an error wrapping
// ErrDiscard acks and drops it (permanent failure); any other error nacks it
// back onto the queue for redelivery (transient failure).
type DeliveryHandler interface {
	Queue() string
	Handle(ctx context.Context, body []byte) error
}

// Consumer drains one durable queue with manual acknowledgment. The prefetch
// window bounds unacknowledged deliveries (1 in this design: one message is
// fully settled before the next is handed over).
type Consumer struct {
	cfg     *Config
	handler DeliveryHandler
}

// NewConsumer creates a consumer for the handler's queue. No connection is
// made until Run.
func NewConsumer(handler DeliveryHandler, opts ...Option) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("amqp consumer: handler is required")
	}

	cfg := defaultConfig()
	cfg.Queue = handler.Queue()
	for _, opt := range opts {
		opt(cfg)
	}

	initMetricsOnce()
	return &Consumer{cfg: cfg, handler: handler}, nil
}

// Run connects and consumes until ctx is cancelled. Connection failures are
// never fatal: the loop reenters the connect phase after the fixed delay, for
// the lifetime of the service.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.consume(ctx); err != nil {
			log.Printf("amqp consumer: %v, reconnecting in %s", err, c.cfg.ReconnectDelay)
			reconnectsTotal.WithLabelValues("consumer").Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// consume holds one connection for as long as it stays healthy. Returns nil
// only on context cancellation.
func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp091.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}

	log.Printf("amqp consumer: listening queue=%s prefetch=%d", c.cfg.Queue, c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			// A delivery in flight has already been settled by this point:
			// handleDelivery runs inline before the next channel receive.
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, &d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d *amqp091.Delivery) {
	start := time.Now()
	err := c.handler.Handle(ctx, d.Body)
	handleLatency.WithLabelValues(c.cfg.Queue).Observe(time.Since(start).Seconds())

	if err != nil && !errors.Is(err, ErrDiscard) {
		// Let the queue settle before the redelivery attempt; a hot
		// nack/redeliver loop against a broken store helps nobody. Shutdown
		// still completes the settlement decision below.
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RequeueDelay):
		}
	}

	disposition := settle(d.Acknowledger, d.DeliveryTag, err)
	consumedTotal.WithLabelValues(c.cfg.Queue, disposition).Inc()
}

// settle acks or nacks one delivery according to the handler outcome and
// reports the disposition taken.
func settle(ack amqp091.Acknowledger, tag uint64, err error) string {
	switch {
	case err == nil:
		if ackErr := ack.Ack(tag, false); ackErr != nil {
			log.Printf("amqp consumer: ack failed: %v", ackErr)
			return "ack_failed"
		}
		return "ack"
	case errors.Is(err, ErrDiscard):
		// Permanent failure: acknowledge so the broker never redelivers.
		if ackErr := ack.Ack(tag, false); ackErr != nil {
			log.Printf("amqp consumer: discard ack failed: %v", ackErr)
			return "ack_failed"
		}
		return "discard"
	default:
		if nackErr := ack.Nack(tag, false, true); nackErr != nil {
			log.Printf("amqp consumer: nack failed: %v", nackErr)
			return "nack_failed"
		}
		return "requeue"
	}
}

var (
	publishedTotal  *prometheus.CounterVec
	consumedTotal   *prometheus.CounterVec
	reconnectsTotal *prometheus.CounterVec
	handleLatency   *prometheus.HistogramVec
	metricsOnce     = make(chan struct{}, 1)
)

func initMetricsOnce() {
	select {
	case metricsOnce <- struct{}{}:
		publishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "alphascout_amqp_published_total", Help: "Publish attempts by result"},
			[]string{"queue", "result"},
		)
		consumedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "alphascout_amqp_consumed_total", Help: "Deliveries settled by disposition"},
			[]string{"queue", "disposition"},
		)
		reconnectsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "alphascout_amqp_reconnects_total", Help: "Reconnect attempts by role"},
			[]string{"role"},
		)
		handleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "alphascout_amqp_handle_seconds", Help: "Handler time per delivery"},
			[]string{"queue"},
		)
	default:
		// already initialized
	}
}
