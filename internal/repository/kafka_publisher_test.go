package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chartfeed/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	topic string
	key   string
	value []byte
}

type recordingProducer struct {
	messages []recordedMessage
	err      error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	p.messages = append(p.messages, recordedMessage{topic: topic, key: string(key), value: b})
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func TestKafkaChunkEventPublisher(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaChunkEventPublisher(prod, "chunks.sealed")

	ev := models.ChunkSealedEvent{
		MarketID:       7,
		Period:         models.Period1M,
		ChunkSize:      500,
		ChunkID:        3,
		FirstStartTime: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		LastStartTime:  time.Date(2024, 10, 1, 8, 19, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishChunkSealed(context.Background(), ev))
	require.Len(t, prod.messages, 1)

	msg := prod.messages[0]
	assert.Equal(t, "chunks.sealed", msg.topic)
	assert.Equal(t, "7:period_1m", msg.key)

	var got models.ChunkSealedEvent
	require.NoError(t, json.Unmarshal(msg.value, &got))
	assert.Equal(t, ev.ChunkID, got.ChunkID)
	assert.True(t, ev.FirstStartTime.Equal(got.FirstStartTime))
}

func TestKafkaChunkEventPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewKafkaChunkEventPublisher(&recordingProducer{err: boom}, "chunks.sealed")
	err := pub.PublishChunkSealed(context.Background(), models.ChunkSealedEvent{ChunkID: 4})
	assert.ErrorIs(t, err, boom)
}
