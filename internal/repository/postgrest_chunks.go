package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chartfeed/internal/domain/models"
	apphttp "chartfeed/pkg/http"
	applogger "chartfeed/pkg/logger"
)

const (
	postgrestMetadataRPC  = "rpc/chunked_candlesticks_metadata"
	postgrestCandlesticks = "candlesticks"
)

// PostgRESTChunkSource reads chunk metadata and rows through a PostgREST API.
type PostgRESTChunkSource struct {
	client   *apphttp.Client
	pageSize int
	l        *applogger.Logger
}

// NewPostgRESTChunkSource creates a source on top of client, whose base URL
// points at the PostgREST root.
func NewPostgRESTChunkSource(client *apphttp.Client, pageSize int, l *applogger.Logger) *PostgRESTChunkSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgRESTChunkSource{client: client, pageSize: pageSize, l: l}
}

func (s *PostgRESTChunkSource) PageSize() int { return s.pageSize }

func (s *PostgRESTChunkSource) FetchChunkMetadata(ctx context.Context, marketID int64, period models.Period, chunkSize, page int) ([]models.RawChunkMetadata, error) {
	start := time.Now()
	var out []models.RawChunkMetadata
	err := s.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		Path:   postgrestMetadataRPC,
		QueryParams: map[string][]string{
			"market_id":  {strconv.FormatInt(marketID, 10)},
			"period":     {string(period)},
			"chunk_size": {strconv.Itoa(chunkSize)},
			"order":      {"chunk_id.asc"},
			"limit":      {strconv.Itoa(s.pageSize)},
			"offset":     {strconv.Itoa(pageOffset(page, s.pageSize))},
		},
	}, &out)
	if err != nil {
		s.l.Error("postgrest chunk metadata error",
			applogger.Int64("market_id", marketID),
			applogger.String("period", string(period)),
			applogger.Int("page", page),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("postgrest chunk metadata: %w", err)
	}
	s.l.Debug("postgrest chunk metadata ok",
		applogger.Int64("market_id", marketID),
		applogger.String("period", string(period)),
		applogger.Int("page", page),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *PostgRESTChunkSource) FetchChunk(ctx context.Context, marketID int64, period models.Period, chunkSize int, chunkID int64) ([]models.Candlestick, error) {
	offset, limit, err := chunkBounds(chunkSize, chunkID)
	if err != nil {
		return nil, err
	}

	var raw []map[string]interface{}
	err = s.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		Path:   postgrestCandlesticks,
		QueryParams: map[string][]string{
			"select":    {strings.Join(candlestickColumns, ",")},
			"market_id": {"eq." + strconv.FormatInt(marketID, 10)},
			"period":    {"eq." + string(period)},
			"order":     {"start_time.asc"},
			"offset":    {strconv.FormatInt(offset, 10)},
			"limit":     {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		s.l.Error("postgrest chunk rows error",
			applogger.Int64("market_id", marketID),
			applogger.Int64("chunk_id", chunkID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("postgrest chunk %d rows: %w", chunkID, err)
	}

	out := make([]models.Candlestick, 0, len(raw))
	for i, row := range raw {
		var c models.Candlestick
		for _, col := range candlestickColumns {
			if err := c.SetColumn(col, row[col]); err != nil {
				return nil, fmt.Errorf("postgrest chunk %d row %d: %w", chunkID, i, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Health requests the API root, which PostgREST answers with its schema.
func (s *PostgRESTChunkSource) Health(ctx context.Context) error {
	return s.client.SendAndParse(ctx, &apphttp.RequestOptions{Method: apphttp.MethodGet, Path: "/"}, nil)
}

func (s *PostgRESTChunkSource) Close() error { return nil }
