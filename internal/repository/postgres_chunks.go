package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chartfeed/internal/domain/models"
	applogger "chartfeed/pkg/logger"
	pkgpg "chartfeed/pkg/postgres"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresChunkSource queries the indexer database directly.
type PostgresChunkSource struct {
	client   *pkgpg.Client
	db       *sqlx.DB
	pageSize int
	l        *applogger.Logger
}

func NewPostgresChunkSource(client *pkgpg.Client, pageSize int, l *applogger.Logger) *PostgresChunkSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgresChunkSource{client: client, db: client.DB(), pageSize: pageSize, l: l}
}

// pgCandlestick adds the text[] scan target that models.Candlestick leaves out.
type pgCandlestick struct {
	models.Candlestick
	SymbolEmojis pq.StringArray `db:"symbol_emojis"`
}

func (s *PostgresChunkSource) PageSize() int { return s.pageSize }

func (s *PostgresChunkSource) FetchChunkMetadata(ctx context.Context, marketID int64, period models.Period, chunkSize, page int) ([]models.RawChunkMetadata, error) {
	const q = `
        SELECT chunk_id, first_start_time, last_start_time, num_items
        FROM chunked_candlesticks_metadata($1, $2, $3)
        ORDER BY chunk_id ASC
        LIMIT $4 OFFSET $5
    `
	start := time.Now()
	var out []models.RawChunkMetadata
	if err := s.db.SelectContext(ctx, &out, q, marketID, string(period), chunkSize, s.pageSize, pageOffset(page, s.pageSize)); err != nil {
		s.l.Error("postgres chunk metadata query error",
			applogger.Int64("market_id", marketID),
			applogger.String("period", string(period)),
			applogger.Int("page", page),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("postgres chunk metadata: %w", err)
	}
	s.l.Debug("postgres chunk metadata ok",
		applogger.Int64("market_id", marketID),
		applogger.String("period", string(period)),
		applogger.Int("page", page),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *PostgresChunkSource) FetchChunk(ctx context.Context, marketID int64, period models.Period, chunkSize int, chunkID int64) ([]models.Candlestick, error) {
	offset, limit, err := chunkBounds(chunkSize, chunkID)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + strings.Join(candlestickColumns, ", ") + `
        FROM candlesticks
        WHERE market_id = $1 AND period = $2
        ORDER BY start_time ASC
        LIMIT $3 OFFSET $4`

	var rows []pgCandlestick
	if err := s.db.SelectContext(ctx, &rows, q, marketID, string(period), limit, offset); err != nil {
		s.l.Error("postgres chunk rows query error",
			applogger.Int64("market_id", marketID),
			applogger.Int64("chunk_id", chunkID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("postgres chunk %d rows: %w", chunkID, err)
	}

	out := make([]models.Candlestick, len(rows))
	for i, r := range rows {
		out[i] = r.Candlestick
		out[i].SymbolEmojis = []string(r.SymbolEmojis)
		out[i].StartTime = r.StartTime.UTC()
	}
	return out, nil
}

func (s *PostgresChunkSource) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PostgresChunkSource) Close() error {
	return s.client.Close()
}
