package chunks

import (
	"fmt"
	"slices"

	"chartfeed/internal/domain/models"
)

// DefaultKeyOrdering is the column order used for cached candlestick chunks.
var DefaultKeyOrdering = []string{
	models.ColStartTime,
	models.ColTransactionVersion,
	models.ColOpenPrice,
	models.ColHighPrice,
	models.ColLowPrice,
	models.ColClosePrice,
	models.ColVolume,
}

// PackInput holds the rows of one chunk and how to lay them out.
type PackInput struct {
	MarketID    int64
	Period      models.Period
	Rows        []models.Candlestick
	KeyOrdering []string
	// Strict checks every row against the header and key ordering. Its cost grows with
	// rows times keys, so it is meant for tests and debugging.
	Strict bool
}

// Pack converts homogeneous candlestick rows into a positional cache entry.
// It returns nil without error for empty input: nothing to cache yet.
func Pack(in PackInput) (*models.CachedChunk, error) {
	if len(in.Rows) == 0 {
		return nil, nil
	}
	keys := in.KeyOrdering
	if len(keys) == 0 {
		keys = DefaultKeyOrdering
	}

	first := &in.Rows[0]
	header := models.ChunkHeader{
		MarketID:     first.MarketID,
		SymbolEmojis: first.SymbolEmojis,
		Period:       first.Period,
		KeyOrdering:  slices.Clone(keys),
	}

	if in.Strict {
		if err := validateRows(in, header); err != nil {
			return nil, err
		}
	}

	rows := make([][]any, len(in.Rows))
	for i := range in.Rows {
		tuple := make([]any, len(keys))
		for k, key := range keys {
			tuple[k], _ = in.Rows[i].Column(key)
		}
		rows[i] = tuple
	}
	return &models.CachedChunk{Metadata: header, Rows: rows}, nil
}

func validateRows(in PackInput, header models.ChunkHeader) error {
	if in.MarketID != header.MarketID {
		return &PackMismatchError{Row: 0, Field: models.ColMarketID, Want: in.MarketID, Got: header.MarketID}
	}
	if in.Period != "" && in.Period != header.Period {
		return &PackMismatchError{Row: 0, Field: models.ColPeriod, Want: in.Period, Got: header.Period}
	}
	for i := range in.Rows {
		row := &in.Rows[i]
		if row.MarketID != header.MarketID {
			return &PackMismatchError{Row: i, Field: models.ColMarketID, Want: header.MarketID, Got: row.MarketID}
		}
		if !slices.Equal(row.SymbolEmojis, header.SymbolEmojis) {
			return &PackMismatchError{Row: i, Field: models.ColSymbolEmojis, Want: header.SymbolEmojis, Got: row.SymbolEmojis}
		}
		if row.Period != header.Period {
			return &PackMismatchError{Row: i, Field: models.ColPeriod, Want: header.Period, Got: row.Period}
		}
		for _, key := range header.KeyOrdering {
			if _, ok := row.Column(key); !ok {
				return &PackMismatchError{Row: i, Field: key}
			}
		}
	}
	return nil
}

// Unpack zips the key ordering back onto every tuple. Header fields not present in the
// key ordering are restored from the chunk header.
func Unpack(chunk *models.CachedChunk) ([]models.Candlestick, error) {
	if chunk == nil {
		return nil, nil
	}
	keys := chunk.Metadata.KeyOrdering
	out := make([]models.Candlestick, len(chunk.Rows))
	for i, tuple := range chunk.Rows {
		if len(tuple) != len(keys) {
			return nil, fmt.Errorf("row %d has %d values for %d keys", i, len(tuple), len(keys))
		}
		c := models.Candlestick{
			MarketID:     chunk.Metadata.MarketID,
			SymbolEmojis: chunk.Metadata.SymbolEmojis,
			Period:       chunk.Metadata.Period,
		}
		for k, key := range keys {
			if err := c.SetColumn(key, tuple[k]); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		out[i] = c
	}
	return out, nil
}
