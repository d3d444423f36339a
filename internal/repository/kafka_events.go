package repository

import (
	"context"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
	pkgkafka "WorthWatch/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher for Kafka. Events are keyed
// by month when they have one, so consumers see per-month updates in order.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	metrics  domrepo.Metrics
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string, metrics domrepo.Metrics) domrepo.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, metrics: metrics}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, e *models.Event) error {
	key := e.Month
	if key == "" {
		key = e.Event
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(key), e); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("event_publish")
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordEventPublished("kafka", e.Event)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
