package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chartfeed/internal/domain/models"
	pkgcache "chartfeed/pkg/cache"
	"chartfeed/pkg/logger"
)

const keyPrefix = "chunks"

// Lifetime decides how long a cached chunk stays valid.
type Lifetime int

const (
	// LifetimeSealed is for complete chunks. Their rows never change.
	LifetimeSealed Lifetime = iota
	// LifetimeLive is for the trailing chunk that still receives candlesticks.
	LifetimeLive
)

func (l Lifetime) String() string {
	if l == LifetimeLive {
		return "live"
	}
	return "sealed"
}

// LifetimeFor picks the lifetime of a chunk from its completeness.
func LifetimeFor(meta models.ChunkMetadata) Lifetime {
	if meta.Complete {
		return LifetimeSealed
	}
	return LifetimeLive
}

// ChunkKey identifies one chunk of one market series.
type ChunkKey struct {
	MarketID  int64
	Period    models.Period
	ChunkSize int
	ChunkID   int64
}

// Key renders chunks:<lifetime>:<market>:<period>:<chunkSize>:<chunkID>.
func (k ChunkKey) Key(l Lifetime) string {
	return pkgcache.GenerateKeyWithParams(keyPrefix, l.String(), k.MarketID, k.Period, k.ChunkSize, k.ChunkID)
}

// Option configures ChunkCache.
type Option func(*ChunkCache)

// WithSealedTTL sets the expiration of sealed chunks. 0 means no expiry.
func WithSealedTTL(ttl time.Duration) Option {
	return func(c *ChunkCache) {
		c.sealedTTL = ttl
	}
}

// WithLiveTTL sets the expiration of live chunks. 0 disables caching them.
func WithLiveTTL(ttl time.Duration) Option {
	return func(c *ChunkCache) {
		c.liveTTL = ttl
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *ChunkCache) {
		c.log = l
	}
}

// ChunkCache stores packed chunks in a pkg/cache backend, keyed by lifetime.
type ChunkCache struct {
	store     pkgcache.Service
	sealedTTL time.Duration
	liveTTL   time.Duration
	log       *logger.Logger
}

func NewChunkCache(store pkgcache.Service, opts ...Option) *ChunkCache {
	c := &ChunkCache{
		store:   store,
		liveTTL: 10 * time.Second,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LiveTTL is how long a live chunk may be served from cache.
func (c *ChunkCache) LiveTTL() time.Duration { return c.liveTTL }

func (c *ChunkCache) bypass(l Lifetime) bool {
	return l == LifetimeLive && c.liveTTL <= 0
}

// Get returns the cached chunk. Undecodable entries are dropped and reported as a miss.
func (c *ChunkCache) Get(ctx context.Context, key ChunkKey, l Lifetime) (*models.CachedChunk, bool, error) {
	if c.bypass(l) {
		return nil, false, nil
	}

	k := key.Key(l)
	chunk, err := pkgcache.GetJSON[models.CachedChunk](ctx, c.store, k)
	switch {
	case errors.Is(err, pkgcache.ErrCacheMiss):
		return nil, false, nil
	case errors.Is(err, pkgcache.ErrDecode):
	case err != nil:
		return nil, false, fmt.Errorf("chunk cache get %s: %w", k, err)
	case len(chunk.Metadata.KeyOrdering) == 0:
		err = errors.New("missing key ordering")
	default:
		return &chunk, true, nil
	}

	c.log.Warn("dropping undecodable chunk cache entry",
		logger.String("key", k),
		logger.Error(err),
	)
	_ = c.store.Delete(ctx, k)
	return nil, false, nil
}

// Put stores chunk under key. For sealed chunks it reports whether this call
// created the entry, so callers can act once per sealed chunk.
func (c *ChunkCache) Put(ctx context.Context, key ChunkKey, chunk *models.CachedChunk, l Lifetime) (bool, error) {
	if chunk == nil || c.bypass(l) {
		return false, nil
	}

	k := key.Key(l)
	if l == LifetimeLive {
		if err := pkgcache.SetJSON(ctx, c.store, k, chunk, c.liveTTL); err != nil {
			return false, fmt.Errorf("chunk cache set %s: %w", k, err)
		}
		return true, nil
	}

	created, err := pkgcache.SetNXJSON(ctx, c.store, k, chunk, c.sealedTTL)
	if err != nil {
		return false, fmt.Errorf("chunk cache set %s: %w", k, err)
	}
	if created {
		// The same chunk may still sit under its live key from before it filled up.
		_ = c.store.Delete(ctx, key.Key(LifetimeLive))
	}
	return created, nil
}

// InvalidateLive drops every live chunk of one market series.
func (c *ChunkCache) InvalidateLive(ctx context.Context, marketID int64, period models.Period) error {
	pattern := pkgcache.BuildPattern(pkgcache.GenerateKeyWithParams(keyPrefix, LifetimeLive.String(), marketID, period) + ":")
	if err := c.store.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("invalidate live chunks: %w", err)
	}
	return nil
}

func (c *ChunkCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
