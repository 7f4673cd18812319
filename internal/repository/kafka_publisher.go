package repository

import (
	"context"
	"fmt"
	"strconv"

	"chartfeed/internal/domain/models"
	domrepo "chartfeed/internal/domain/repository"
	pkgkafka "chartfeed/pkg/kafka"
)

// Publisher is the subset of pkg/kafka.Producer the event publisher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ Publisher = (*pkgkafka.Producer)(nil)

// KafkaChunkEventPublisher announces sealed chunks on a Kafka topic.
// Messages are keyed by market and period so one series stays on one partition.
type KafkaChunkEventPublisher struct {
	producer Publisher
	topic    string
}

func NewKafkaChunkEventPublisher(producer Publisher, topic string) *KafkaChunkEventPublisher {
	return &KafkaChunkEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaChunkEventPublisher) PublishChunkSealed(ctx context.Context, ev models.ChunkSealedEvent) error {
	key := strconv.FormatInt(ev.MarketID, 10) + ":" + string(ev.Period)
	if err := p.producer.Publish(ctx, p.topic, []byte(key), ev); err != nil {
		return fmt.Errorf("publish chunk sealed %d: %w", ev.ChunkID, err)
	}
	return nil
}

func (p *KafkaChunkEventPublisher) Close() error {
	return p.producer.Close()
}

// NoopChunkEventPublisher is used when no broker is configured.
type NoopChunkEventPublisher struct{}

func (NoopChunkEventPublisher) PublishChunkSealed(context.Context, models.ChunkSealedEvent) error {
	return nil
}

func (NoopChunkEventPublisher) Close() error { return nil }

var (
	_ domrepo.ChunkEventPublisher = (*KafkaChunkEventPublisher)(nil)
	_ domrepo.ChunkEventPublisher = NoopChunkEventPublisher{}
)
