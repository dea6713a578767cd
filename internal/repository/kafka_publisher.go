package repository

import (
	"context"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
	pkgkafka "TriRecover/pkg/kafka"
)

// KafkaPublisher implements Publisher. Messages are keyed by date so every
// recomputation of a day lands on the same partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

var _ repository.Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, ev models.AssessmentEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Date), ev)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, evs []models.AssessmentEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{Key: []byte(ev.Date), Value: ev}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.AssessmentEvent) error         { return nil }
func (NopPublisher) PublishBatch(context.Context, []models.AssessmentEvent) error { return nil }
func (NopPublisher) Close() error                                                 { return nil }
