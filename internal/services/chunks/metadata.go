package chunks

import (
	"context"
	"fmt"

	"chartfeed/internal/domain/models"
	"chartfeed/internal/domain/repository"
)

// ToChunkMetadata converts raw metadata rows, deriving completeness from chunkSize.
// An in-flight chunk's reported count may be mid-update, so the stored value is never trusted.
func ToChunkMetadata(raw []models.RawChunkMetadata, chunkSize int) []models.ChunkMetadata {
	out := make([]models.ChunkMetadata, len(raw))
	for i, m := range raw {
		out[i] = models.ChunkMetadata{
			ChunkID:        m.ChunkID,
			FirstStartTime: m.FirstStartTime.UTC(),
			LastStartTime:  m.LastStartTime.UTC(),
			NumItems:       m.NumItems,
			Complete:       m.NumItems == chunkSize,
		}
	}
	return out
}

// FetchMetadata fetches a single page of chunk metadata. Pages are 1-indexed; a page
// below 1 is treated as the first page.
func FetchMetadata(ctx context.Context, src repository.ChunkSource, marketID int64, period models.Period, chunkSize, page int) ([]models.ChunkMetadata, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if page < 1 {
		page = 1
	}
	raw, err := src.FetchChunkMetadata(ctx, marketID, period, chunkSize, page)
	if err != nil {
		return nil, err
	}
	return ToChunkMetadata(raw, chunkSize), nil
}

// FetchAllMetadata pages through every chunk of a market and period. It stops at the
// first page holding fewer rows than the source's page size.
func FetchAllMetadata(ctx context.Context, src repository.ChunkSource, marketID int64, period models.Period, chunkSize int) ([]models.ChunkMetadata, error) {
	limit := src.PageSize()
	if limit <= 0 {
		return nil, fmt.Errorf("chunk source page size must be positive, got %d", limit)
	}
	var all []models.ChunkMetadata
	for page := 1; ; page++ {
		res, err := FetchMetadata(ctx, src, marketID, period, chunkSize, page)
		if err != nil {
			return nil, fmt.Errorf("fetch metadata page %d: %w", page, err)
		}
		all = append(all, res...)
		if len(res) < limit {
			return all, nil
		}
	}
}

// CheckOnlyLastIncomplete verifies that every chunk but the last holds exactly chunkSize items.
func CheckOnlyLastIncomplete(chunkSize int, metadata []models.ChunkMetadata) error {
	for i := 0; i < len(metadata)-1; i++ {
		if metadata[i].NumItems != chunkSize {
			lengths := make([]int, len(metadata))
			for j, m := range metadata {
				lengths[j] = m.NumItems
			}
			return &ChunkLengthError{ChunkSize: chunkSize, Lengths: lengths}
		}
	}
	return nil
}
