package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chartfeed/internal/domain/models"
	domrepo "chartfeed/internal/domain/repository"
	svccache "chartfeed/internal/service/cache"
	"chartfeed/internal/services/chunks"
	"chartfeed/pkg/logger"
)

var (
	// ErrInvalidParams reports a request the pipeline cannot serve as given.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrSource marks failures of the chunk source (database or PostgREST).
	ErrSource = errors.New("chunk source error")
)

// DefaultChunkSize is the number of candlesticks per chunk.
const DefaultChunkSize = 500

// CandlesticksUseCase serves getBars requests from chunked, cached candlesticks.
type CandlesticksUseCase struct {
	source      domrepo.ChunkSource
	cache       *svccache.ChunkCache
	events      domrepo.ChunkEventPublisher
	metrics     domrepo.Metrics
	log         *logger.Logger
	chunkSize   int
	development bool
	keyOrdering []string
}

// Option configures CandlesticksUseCase.
type Option func(*CandlesticksUseCase)

func WithChunkSize(n int) Option {
	return func(uc *CandlesticksUseCase) {
		if n > 0 {
			uc.chunkSize = n
		}
	}
}

// WithDevelopment turns data-shape warnings into errors and packs in strict mode.
func WithDevelopment(dev bool) Option {
	return func(uc *CandlesticksUseCase) {
		uc.development = dev
	}
}

func WithKeyOrdering(keys []string) Option {
	return func(uc *CandlesticksUseCase) {
		if len(keys) > 0 {
			uc.keyOrdering = keys
		}
	}
}

func WithEventPublisher(p domrepo.ChunkEventPublisher) Option {
	return func(uc *CandlesticksUseCase) {
		if p != nil {
			uc.events = p
		}
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(uc *CandlesticksUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(uc *CandlesticksUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewCandlesticksUseCase(source domrepo.ChunkSource, cache *svccache.ChunkCache, opts ...Option) *CandlesticksUseCase {
	uc := &CandlesticksUseCase{
		source:      source,
		cache:       cache,
		events:      noopEvents{},
		metrics:     noopMetrics{},
		log:         logger.Nop(),
		chunkSize:   DefaultChunkSize,
		keyOrdering: chunks.DefaultKeyOrdering,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ChunkSize returns the configured chunk size.
func (uc *CandlesticksUseCase) ChunkSize() int { return uc.chunkSize }

type GetBarsParams struct {
	MarketID int64
	Period   models.Period
	models.PeriodParams
}

type GetBarsResult struct {
	Bars   []models.Bar
	Chunks []models.ChunkMetadata
	// Complete is false when history ran out before countBack or from was covered.
	Complete bool
	// NoData tells the chart there is nothing at or before To.
	NoData bool
	// Sealed is true when every returned chunk was cached as sealed and a newer chunk
	// exists past To. Only then can the response itself be cached forever.
	Sealed bool
}

func (p GetBarsParams) validate() error {
	if p.MarketID <= 0 {
		return fmt.Errorf("%w: market id must be positive", ErrInvalidParams)
	}
	if !p.Period.IsValid() {
		return fmt.Errorf("%w: unknown period %q", ErrInvalidParams, p.Period)
	}
	if p.To <= p.From {
		return fmt.Errorf("%w: to (%d) must be after from (%d)", ErrInvalidParams, p.To, p.From)
	}
	return nil
}

// GetBars returns at least CountBack bars before To (when history allows) plus
// every bar in [From, To), ascending by start time.
func (uc *CandlesticksUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	metadata, err := uc.metadata(ctx, p.MarketID, p.Period)
	if err != nil {
		return nil, err
	}

	if err := chunks.CheckOnlyLastIncomplete(uc.chunkSize, metadata); err != nil {
		uc.metrics.RecordError("chunk_length")
		if uc.development {
			return nil, err
		}
		uc.log.Warn("more than one incomplete chunk",
			logger.Int64("market_id", p.MarketID),
			logger.String("period", string(p.Period)),
			logger.Error(err),
		)
	}

	sel, err := chunks.Select(uc.chunkSize, metadata, p.PeriodParams)
	if err != nil {
		uc.metrics.RecordError("select")
		return nil, err
	}
	uc.metrics.RecordSelection(len(sel.Chunks), sel.Complete)

	to := p.ToTime()
	bars := make([]models.Bar, 0, len(sel.Chunks)*uc.chunkSize)
	sealed := len(sel.Chunks) > 0 && sel.Closed
	for _, meta := range sel.Chunks {
		rows, lifetime, err := uc.loadChunk(ctx, p.MarketID, p.Period, meta)
		if err != nil {
			return nil, err
		}
		sealed = sealed && lifetime == svccache.LifetimeSealed
		for i := range rows {
			if !rows[i].StartTime.Before(to) {
				continue
			}
			bars = append(bars, rows[i].ToBar())
		}
	}

	uc.log.Debug("bars served",
		logger.Int64("market_id", p.MarketID),
		logger.String("period", string(p.Period)),
		logger.Int64s("chunks", sel.ChunkIDs()),
		logger.Int("bars", len(bars)),
		logger.Bool("complete", sel.Complete),
	)

	return &GetBarsResult{
		Bars:     bars,
		Chunks:   sel.Chunks,
		Complete: sel.Complete,
		NoData:   len(bars) == 0,
		Sealed:   sealed,
	}, nil
}

// ListChunks returns every chunk of a market series.
func (uc *CandlesticksUseCase) ListChunks(ctx context.Context, marketID int64, period models.Period) ([]models.ChunkMetadata, error) {
	if marketID <= 0 {
		return nil, fmt.Errorf("%w: market id must be positive", ErrInvalidParams)
	}
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidParams, period)
	}
	return uc.metadata(ctx, marketID, period)
}

// Health checks the chunk source and the cache backend.
func (uc *CandlesticksUseCase) Health(ctx context.Context) error {
	var errs []error
	if err := uc.source.Health(ctx); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	if err := uc.cache.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	return errors.Join(errs...)
}

func (uc *CandlesticksUseCase) metadata(ctx context.Context, marketID int64, period models.Period) ([]models.ChunkMetadata, error) {
	start := time.Now()
	metadata, err := chunks.FetchAllMetadata(ctx, uc.source, marketID, period, uc.chunkSize)
	uc.metrics.RecordLatency("fetch_metadata", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("source_metadata")
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}
	return metadata, nil
}

// loadChunk reads one chunk from cache, falling back to the source and filling the cache.
// It returns the lifetime the rows were served under. Cache failures are logged and
// never fail the request.
func (uc *CandlesticksUseCase) loadChunk(ctx context.Context, marketID int64, period models.Period, meta models.ChunkMetadata) ([]models.Candlestick, svccache.Lifetime, error) {
	key := svccache.ChunkKey{MarketID: marketID, Period: period, ChunkSize: uc.chunkSize, ChunkID: meta.ChunkID}
	lifetime := svccache.LifetimeFor(meta)

	cached, hit, err := uc.cache.Get(ctx, key, lifetime)
	if err != nil {
		uc.metrics.RecordError("cache_get")
		uc.log.Warn("chunk cache read failed", logger.Int64("chunk_id", meta.ChunkID), logger.Error(err))
	}
	uc.metrics.RecordCacheLookup(lifetime.String(), hit)
	if hit {
		rows, err := chunks.Unpack(cached)
		if err == nil {
			return rows, lifetime, nil
		}
		uc.metrics.RecordError("cache_unpack")
		uc.log.Warn("cached chunk could not be unpacked", logger.Int64("chunk_id", meta.ChunkID), logger.Error(err))
	}

	start := time.Now()
	rows, err := uc.source.FetchChunk(ctx, marketID, period, uc.chunkSize, meta.ChunkID)
	uc.metrics.RecordLatency("fetch_chunk", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("source_chunk")
		return nil, lifetime, fmt.Errorf("%w: chunk %d: %w", ErrSource, meta.ChunkID, err)
	}

	// The metadata may be older than the rows; only a full chunk is sealed.
	if lifetime == svccache.LifetimeSealed && len(rows) != uc.chunkSize {
		uc.log.Warn("sealed chunk returned a partial row set",
			logger.Int64("chunk_id", meta.ChunkID),
			logger.Int("rows", len(rows)),
			logger.Int("chunk_size", uc.chunkSize),
		)
		lifetime = svccache.LifetimeLive
	}

	packed, err := chunks.Pack(chunks.PackInput{
		MarketID:    marketID,
		Period:      period,
		Rows:        rows,
		KeyOrdering: uc.keyOrdering,
		Strict:      uc.development,
	})
	if err != nil {
		uc.metrics.RecordError("pack")
		return nil, lifetime, err
	}
	if packed == nil {
		return rows, lifetime, nil
	}

	created, err := uc.cache.Put(ctx, key, packed, lifetime)
	if err != nil {
		uc.metrics.RecordError("cache_put")
		uc.log.Warn("chunk cache write failed", logger.Int64("chunk_id", meta.ChunkID), logger.Error(err))
		return rows, lifetime, nil
	}
	if created && lifetime == svccache.LifetimeSealed {
		uc.publishSealed(ctx, marketID, period, meta)
	}
	return rows, lifetime, nil
}

func (uc *CandlesticksUseCase) publishSealed(ctx context.Context, marketID int64, period models.Period, meta models.ChunkMetadata) {
	ev := models.ChunkSealedEvent{
		MarketID:       marketID,
		Period:         period,
		ChunkSize:      uc.chunkSize,
		ChunkID:        meta.ChunkID,
		FirstStartTime: meta.FirstStartTime,
		LastStartTime:  meta.LastStartTime,
	}
	if err := uc.events.PublishChunkSealed(ctx, ev); err != nil {
		uc.metrics.RecordError("publish_sealed")
		uc.log.Warn("chunk sealed event not published", logger.Int64("chunk_id", meta.ChunkID), logger.Error(err))
	}
}

type noopEvents struct{}

func (noopEvents) PublishChunkSealed(context.Context, models.ChunkSealedEvent) error { return nil }
func (noopEvents) Close() error                                                      { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordCacheLookup(string, bool) {}
func (noopMetrics) RecordSelection(int, bool)      {}
func (noopMetrics) RecordError(string)             {}
func (noopMetrics) RecordLatency(string, float64)  {}
