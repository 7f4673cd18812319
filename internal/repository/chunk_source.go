package repository

import (
	"fmt"

	"chartfeed/internal/domain/models"
	domrepo "chartfeed/internal/domain/repository"
)

// DefaultPageSize is the number of metadata rows fetched per page.
const DefaultPageSize = 500

// Source names accepted by configuration.
const (
	SourcePostgREST  = "postgrest"
	SourcePostgres   = "postgres"
	SourceClickHouse = "clickhouse"
)

var (
	_ domrepo.ChunkSource = (*PostgRESTChunkSource)(nil)
	_ domrepo.ChunkSource = (*PostgresChunkSource)(nil)
	_ domrepo.ChunkSource = (*ClickHouseChunkSource)(nil)
)

// candlestickColumns is the column list every backend selects, in scan order.
var candlestickColumns = []string{
	models.ColMarketID,
	models.ColSymbolEmojis,
	models.ColPeriod,
	models.ColStartTime,
	models.ColTransactionVersion,
	models.ColOpenPrice,
	models.ColHighPrice,
	models.ColLowPrice,
	models.ColClosePrice,
	models.ColVolume,
}

// pageOffset converts a 1-indexed page into a row offset. Pages below 1 read the first page.
func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// chunkBounds returns the row offset and length of one chunk.
func chunkBounds(chunkSize int, chunkID int64) (int64, int, error) {
	if chunkSize <= 0 {
		return 0, 0, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkID < 0 {
		return 0, 0, fmt.Errorf("chunk id must not be negative, got %d", chunkID)
	}
	return chunkID * int64(chunkSize), chunkSize, nil
}
