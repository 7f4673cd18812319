package repository

import (
	"context"
	"fmt"
	"time"

	"chartfeed/internal/domain/models"
	pkgch "chartfeed/pkg/clickhouse"
	applogger "chartfeed/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// ClickHouseChunkSource derives chunks from a ClickHouse copy of the candlesticks table.
// Chunk ids are computed with a window over start_time, so no metadata function is needed.
type ClickHouseChunkSource struct {
	client   *pkgch.Client
	db       *sqlx.DB
	table    string
	pageSize int
	l        *applogger.Logger
}

func NewClickHouseChunkSource(client *pkgch.Client, table string, pageSize int, l *applogger.Logger) *ClickHouseChunkSource {
	if table == "" {
		table = client.Database() + ".candlesticks"
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseChunkSource{client: client, db: client.DB(), table: table, pageSize: pageSize, l: l}
}

// chCandlestick receives prices as strings; the driver's decimal values do not
// satisfy decimal.Decimal's Scanner.
type chCandlestick struct {
	MarketID           int64     `db:"market_id"`
	SymbolEmojis       []string  `db:"symbol_emojis"`
	Period             string    `db:"period"`
	StartTime          time.Time `db:"start_time"`
	TransactionVersion int64     `db:"transaction_version"`
	OpenPrice          string    `db:"open_price"`
	HighPrice          string    `db:"high_price"`
	LowPrice           string    `db:"low_price"`
	ClosePrice         string    `db:"close_price"`
	Volume             string    `db:"volume"`
}

func (r chCandlestick) toModel() (models.Candlestick, error) {
	c := models.Candlestick{
		MarketID:           r.MarketID,
		SymbolEmojis:       r.SymbolEmojis,
		Period:             models.Period(r.Period),
		StartTime:          r.StartTime.UTC(),
		TransactionVersion: r.TransactionVersion,
	}
	prices := []struct {
		col string
		val string
	}{
		{models.ColOpenPrice, r.OpenPrice},
		{models.ColHighPrice, r.HighPrice},
		{models.ColLowPrice, r.LowPrice},
		{models.ColClosePrice, r.ClosePrice},
		{models.ColVolume, r.Volume},
	}
	for _, p := range prices {
		if err := c.SetColumn(p.col, p.val); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (s *ClickHouseChunkSource) PageSize() int { return s.pageSize }

func (s *ClickHouseChunkSource) FetchChunkMetadata(ctx context.Context, marketID int64, period models.Period, chunkSize, page int) ([]models.RawChunkMetadata, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	q := fmt.Sprintf(`
        SELECT
            toInt64(chunk_id) AS chunk_id,
            min(start_time) AS first_start_time,
            max(start_time) AS last_start_time,
            toInt64(count()) AS num_items
        FROM (
            SELECT start_time,
                   intDiv(row_number() OVER (ORDER BY start_time ASC) - 1, ?) AS chunk_id
            FROM %s
            WHERE market_id = ? AND period = ?
        )
        GROUP BY chunk_id
        ORDER BY chunk_id ASC
        LIMIT ? OFFSET ?
    `, s.table)

	start := time.Now()
	var out []models.RawChunkMetadata
	if err := s.db.SelectContext(ctx, &out, q, chunkSize, marketID, string(period), s.pageSize, pageOffset(page, s.pageSize)); err != nil {
		s.l.Error("clickhouse chunk metadata query error",
			applogger.String("table", s.table),
			applogger.Int64("market_id", marketID),
			applogger.String("period", string(period)),
			applogger.Int("page", page),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("clickhouse chunk metadata: %w", err)
	}
	for i := range out {
		out[i].FirstStartTime = out[i].FirstStartTime.UTC()
		out[i].LastStartTime = out[i].LastStartTime.UTC()
	}
	s.l.Debug("clickhouse chunk metadata ok",
		applogger.String("table", s.table),
		applogger.Int64("market_id", marketID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ClickHouseChunkSource) FetchChunk(ctx context.Context, marketID int64, period models.Period, chunkSize int, chunkID int64) ([]models.Candlestick, error) {
	offset, limit, err := chunkBounds(chunkSize, chunkID)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
        SELECT
            toInt64(market_id) AS market_id,
            symbol_emojis,
            toString(period) AS period,
            start_time,
            toInt64(transaction_version) AS transaction_version,
            toString(open_price) AS open_price,
            toString(high_price) AS high_price,
            toString(low_price) AS low_price,
            toString(close_price) AS close_price,
            toString(volume) AS volume
        FROM %s
        WHERE market_id = ? AND period = ?
        ORDER BY start_time ASC
        LIMIT ? OFFSET ?
    `, s.table)

	var rows []chCandlestick
	if err := s.db.SelectContext(ctx, &rows, q, marketID, string(period), limit, offset); err != nil {
		s.l.Error("clickhouse chunk rows query error",
			applogger.String("table", s.table),
			applogger.Int64("market_id", marketID),
			applogger.Int64("chunk_id", chunkID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("clickhouse chunk %d rows: %w", chunkID, err)
	}

	out := make([]models.Candlestick, 0, len(rows))
	for i, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("clickhouse chunk %d row %d: %w", chunkID, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *ClickHouseChunkSource) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseChunkSource) Close() error {
	return s.client.Close()
}
