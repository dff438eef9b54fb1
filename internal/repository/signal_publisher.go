package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/domain/repository"
	pkgamqp "AlphaScout/pkg/amqp"
)

// AMQPSignalPublisher implements SignalPublisher over the durable queue.
type AMQPSignalPublisher struct {
	publisher *pkgamqp.Publisher
}

// NewAMQPSignalPublisher creates the publisher.
func NewAMQPSignalPublisher(publisher *pkgamqp.Publisher) repository.SignalPublisher {
	return &AMQPSignalPublisher{publisher: publisher}
}

func (p *AMQPSignalPublisher) Publish(ctx context.Context, s *models.OpportunitySignal) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal signal %s: %w", s.ID, err)
	}
	return p.publisher.Publish(ctx, s.ID, body)
}

// PublishBatch publishes signals one by one and stops at the first error.
// Unpublished remainders are dropped by the caller and re-derived next cycle;
// there is no local retry queue.
func (p *AMQPSignalPublisher) PublishBatch(ctx context.Context, signals []*models.OpportunitySignal) error {
	for i, s := range signals {
		if err := p.Publish(ctx, s); err != nil {
			return fmt.Errorf("published %d/%d signals: %w", i, len(signals), err)
		}
	}
	return nil
}

func (p *AMQPSignalPublisher) Close() error {
	return p.publisher.Close()
}
