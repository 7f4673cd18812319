package chunks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartfeed/internal/domain/models"
)

// pagedSource serves metadata rows from memory, one page of size limit at a time.
type pagedSource struct {
	rows  []models.RawChunkMetadata
	limit int
	pages []int
	err   error
}

func (s *pagedSource) FetchChunkMetadata(_ context.Context, _ int64, _ models.Period, _ int, page int) ([]models.RawChunkMetadata, error) {
	s.pages = append(s.pages, page)
	if s.err != nil {
		return nil, s.err
	}
	offset := (page - 1) * s.limit
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + s.limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *pagedSource) FetchChunk(context.Context, int64, models.Period, int, int64) ([]models.Candlestick, error) {
	return nil, nil
}

func (s *pagedSource) PageSize() int                { return s.limit }
func (s *pagedSource) Health(context.Context) error { return nil }
func (s *pagedSource) Close() error                 { return nil }

func rawRows(chunkSize int, counts ...int) []models.RawChunkMetadata {
	out := make([]models.RawChunkMetadata, len(counts))
	for i, m := range buildChunks(chunkSize, counts...) {
		out[i] = models.RawChunkMetadata{
			ChunkID:        m.ChunkID,
			FirstStartTime: m.FirstStartTime,
			LastStartTime:  m.LastStartTime,
			NumItems:       m.NumItems,
		}
	}
	return out
}

func TestToChunkMetadataDerivesCompleteness(t *testing.T) {
	raw := rawRows(10, 10, 10, 4)
	got := ToChunkMetadata(raw, 10)
	require.Len(t, got, 3)
	assert.True(t, got[0].Complete)
	assert.True(t, got[1].Complete)
	assert.False(t, got[2].Complete)
	assert.Equal(t, 4, got[2].NumItems)

	// the same rows read with another chunk size are all incomplete
	for _, m := range ToChunkMetadata(raw, 20) {
		assert.False(t, m.Complete)
	}
}

func TestFetchMetadataDefaultsToFirstPage(t *testing.T) {
	src := &pagedSource{rows: rawRows(10, 10, 10, 10), limit: 2}
	got, err := FetchMetadata(context.Background(), src, 1, models.Period1M, 10, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []int{1}, src.pages)
}

func TestFetchMetadataPropagatesError(t *testing.T) {
	boom := errors.New("connection refused")
	src := &pagedSource{limit: 2, err: boom}
	_, err := FetchMetadata(context.Background(), src, 1, models.Period1M, 10, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, src.pages)
}

func TestFetchAllMetadataPages(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		pages []int
	}{
		{name: "empty", rows: 0, pages: []int{1}},
		{name: "partial page", rows: 3, pages: []int{1, 2}},
		{name: "exact pages", rows: 4, pages: []int{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counts := make([]int, tc.rows)
			for i := range counts {
				counts[i] = 5
			}
			src := &pagedSource{rows: rawRows(5, counts...), limit: 2}
			got, err := FetchAllMetadata(context.Background(), src, 1, models.Period1M, 5)
			require.NoError(t, err)
			assert.Len(t, got, tc.rows)
			assert.Equal(t, tc.pages, src.pages)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i-1].FirstStartTime.Before(got[i].FirstStartTime))
			}
		})
	}
}

func TestCheckOnlyLastIncomplete(t *testing.T) {
	assert.NoError(t, CheckOnlyLastIncomplete(10, buildChunks(10, 10, 10, 3)))
	assert.NoError(t, CheckOnlyLastIncomplete(10, nil))

	err := CheckOnlyLastIncomplete(10, buildChunks(10, 10, 7, 3))
	require.ErrorIs(t, err, ErrChunkLength)
	var le *ChunkLengthError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []int{10, 7, 3}, le.Lengths)
}

func TestOrderingErrorMessage(t *testing.T) {
	err := &OrderingError{First: base.Add(time.Hour), Second: base}
	assert.Contains(t, err.Error(), "ascending")
}
