package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartfeed/internal/domain/models"
	svccache "chartfeed/internal/service/cache"
	pkgcache "chartfeed/pkg/cache"
)

func TestLiveInvalidatorDropsLiveChunks(t *testing.T) {
	ctx := context.Background()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	cc := svccache.NewChunkCache(store, svccache.WithLiveTTL(time.Minute))

	chunk := &models.CachedChunk{
		Metadata: models.ChunkHeader{MarketID: 7, Period: models.Period1M, KeyOrdering: []string{models.ColStartTime}},
		Rows:     [][]any{{base}},
	}
	live := svccache.ChunkKey{MarketID: 7, Period: models.Period1M, ChunkSize: 3, ChunkID: 2}
	sealed := svccache.ChunkKey{MarketID: 7, Period: models.Period1M, ChunkSize: 3, ChunkID: 1}
	other := svccache.ChunkKey{MarketID: 8, Period: models.Period1M, ChunkSize: 3, ChunkID: 0}

	_, err := cc.Put(ctx, live, chunk, svccache.LifetimeLive)
	require.NoError(t, err)
	_, err = cc.Put(ctx, sealed, chunk, svccache.LifetimeSealed)
	require.NoError(t, err)
	_, err = cc.Put(ctx, other, chunk, svccache.LifetimeLive)
	require.NoError(t, err)

	h := NewLiveInvalidator("candlestick-updates", cc, nil, nil)
	assert.Equal(t, "candlestick-updates", h.Topic())
	require.NoError(t, h.Handle(ctx, []byte(`{"market_id":7,"period":"period_1m","start_time":"2024-10-01T00:06:00Z"}`)))

	_, ok, err := cc.Get(ctx, live, svccache.LifetimeLive)
	require.NoError(t, err)
	assert.False(t, ok, "live chunk of the updated market is dropped")

	_, ok, err = cc.Get(ctx, sealed, svccache.LifetimeSealed)
	require.NoError(t, err)
	assert.True(t, ok, "sealed chunks are untouched")

	_, ok, err = cc.Get(ctx, other, svccache.LifetimeLive)
	require.NoError(t, err)
	assert.True(t, ok, "other markets are untouched")
}

func TestLiveInvalidatorRejectsBadMessages(t *testing.T) {
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	metrics := &recordingMetrics{}
	h := NewLiveInvalidator("updates", svccache.NewChunkCache(store), metrics, nil)

	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"market_id":7,"period":"weekly"}`)), ErrInvalidParams)
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"market_id":7,"period":"period_1m","start_time":"2024-10-01T00:06:30Z"}`)), ErrInvalidParams)
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"market_id":7,"period":"period_4h","start_time":"2024-10-01T02:00:00Z"}`)), ErrInvalidParams)
	assert.Equal(t, []string{"consumer_unmarshal", "consumer_invalid", "consumer_invalid", "consumer_invalid"}, metrics.errs)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"market_id":7,"period":"period_4h","start_time":"2024-10-01T04:00:00Z"}`)))
}
