package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chartfeed/internal/domain/models"
	domrepo "chartfeed/internal/domain/repository"
	svccache "chartfeed/internal/service/cache"
	pkgkafka "chartfeed/pkg/kafka"
	"chartfeed/pkg/logger"
)

// LiveInvalidator drops live chunks when the indexer writes a candlestick.
type LiveInvalidator struct {
	topic   string
	cache   *svccache.ChunkCache
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewLiveInvalidator(topic string, cache *svccache.ChunkCache, metrics domrepo.Metrics, l *logger.Logger) *LiveInvalidator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &LiveInvalidator{topic: topic, cache: cache, metrics: metrics, log: l}
}

func (h *LiveInvalidator) Topic() string { return h.topic }

// incoming message schema: {market_id, period, start_time}
func (h *LiveInvalidator) Handle(ctx context.Context, b []byte) error {
	var m models.CandlestickUpdate
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode candlestick update: %w", err)
	}
	if m.MarketID <= 0 || !m.Period.IsValid() {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("%w: candlestick update market=%d period=%q", ErrInvalidParams, m.MarketID, m.Period)
	}

	if !m.StartTime.IsZero() {
		if !models.PeriodStartTime(m.StartTime, m.Period).Equal(m.StartTime) {
			h.metrics.RecordError("consumer_invalid")
			return fmt.Errorf("%w: start time %s is not on a %s boundary", ErrInvalidParams, m.StartTime.Format(time.RFC3339), m.Period)
		}
		h.metrics.RecordLatency("update_e2e", time.Since(m.StartTime).Seconds())
	}

	start := time.Now()
	err := h.cache.InvalidateLive(ctx, m.MarketID, m.Period)
	h.metrics.RecordLatency("invalidate_live", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("invalidate_live")
		return err
	}
	h.log.Debug("live chunks invalidated",
		logger.Int64("market_id", m.MarketID),
		logger.String("period", m.Period.String()),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*LiveInvalidator)(nil)
