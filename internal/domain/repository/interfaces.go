package repository

import (
	"context"

	"chartfeed/internal/domain/models"
)

// ChunkSource exposes chunked candlestick data computed by the indexer database.
type ChunkSource interface {
	// FetchChunkMetadata returns one page (1-indexed) of chunk metadata, ascending by
	// first start time. Completeness is derived from chunkSize by the caller.
	FetchChunkMetadata(ctx context.Context, marketID int64, period models.Period, chunkSize, page int) ([]models.RawChunkMetadata, error)
	// FetchChunk returns every candlestick in one chunk, ascending by start time.
	FetchChunk(ctx context.Context, marketID int64, period models.Period, chunkSize int, chunkID int64) ([]models.Candlestick, error)
	// PageSize is the fixed number of metadata rows per page.
	PageSize() int
	Health(ctx context.Context) error
	Close() error
}

// ChunkEventPublisher announces chunks that became sealed (complete and immutable).
type ChunkEventPublisher interface {
	PublishChunkSealed(ctx context.Context, ev models.ChunkSealedEvent) error
	Close() error
}

type Metrics interface {
	RecordCacheLookup(lifetime string, hit bool)
	RecordSelection(chunks int, complete bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
