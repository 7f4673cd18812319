package di

import (
	"context"
	"fmt"
	"time"

	"chartfeed/internal/domain/repository"
	"chartfeed/internal/handler/api"
	internalrepo "chartfeed/internal/repository"
	svccache "chartfeed/internal/service/cache"
	"chartfeed/internal/service/ratelimit"
	"chartfeed/internal/usecase"
	pkgcache "chartfeed/pkg/cache"
	pkgch "chartfeed/pkg/clickhouse"
	"chartfeed/pkg/config"
	xhttp "chartfeed/pkg/http"
	pkgkafka "chartfeed/pkg/kafka"
	applogger "chartfeed/pkg/logger"
	"chartfeed/pkg/metrics"
	pkgpg "chartfeed/pkg/postgres"
	"chartfeed/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvideChunkSource connects the configured chunk backend.
func ProvideChunkSource(cfg *config.Config, l *applogger.Logger) (repository.ChunkSource, error) {
	src := cfg.Source
	switch src.Type {
	case internalrepo.SourcePostgREST:
		opts := []xhttp.ClientOption{
			xhttp.WithBaseURL(src.PostgREST.URL),
			xhttp.WithTimeout(src.PostgREST.Timeout),
			xhttp.WithHeader("Accept", "application/json"),
		}
		if src.PostgREST.APIKey != "" {
			opts = append(opts,
				xhttp.WithHeader("apikey", src.PostgREST.APIKey),
				xhttp.WithHeader("Authorization", "Bearer "+src.PostgREST.APIKey),
			)
		}
		return internalrepo.NewPostgRESTChunkSource(xhttp.NewClient(opts...), src.PageSize, l), nil

	case internalrepo.SourcePostgres:
		pg := src.Postgres
		opts := []pkgpg.ClientOption{
			pkgpg.WithPool(pg.MaxOpenConns, pg.MaxIdleConns, pg.ConnMaxLifetime, pg.ConnMaxIdleTime),
			pkgpg.WithStatementTimeout(pg.StatementTimeout),
		}
		if pg.DSN != "" {
			opts = append(opts, pkgpg.WithDSN(pg.DSN))
		} else {
			opts = append(opts,
				pkgpg.WithHost(pg.Host, pg.Port),
				pkgpg.WithDatabase(pg.Database),
				pkgpg.WithCredentials(pg.User, pg.Password),
				pkgpg.WithSSLMode(pg.SSLMode),
			)
		}
		client, err := pkgpg.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("postgres client: %w", err)
		}
		return internalrepo.NewPostgresChunkSource(client, src.PageSize, l), nil

	case internalrepo.SourceClickHouse:
		ch := src.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithMaxConnections(ch.MaxOpenConns, ch.MaxIdleConns),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
			pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		return internalrepo.NewClickHouseChunkSource(client, ch.Table, src.PageSize, l), nil
	}
	return nil, fmt.Errorf("unknown source type %q", src.Type)
}

// ProvideCacheStore creates the byte store behind the chunk cache.
func ProvideCacheStore(cfg *config.Config) (pkgcache.Service, error) {
	c := cfg.Cache
	if c.Type == "memory" {
		return pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(c.Memory.MaxSize),
			pkgcache.WithMemoryCleanup(c.Memory.CleanupInterval),
		), nil
	}

	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(c.Redis.Host, c.Redis.Port),
		pkgcache.WithRedisAuth(c.Redis.Password, c.Redis.DB),
		pkgcache.WithRedisPool(c.Redis.PoolSize, c.Redis.MinIdleConns, c.Redis.Timeout),
		pkgcache.WithRedisDialTimeout(c.Redis.DialTimeout),
		pkgcache.WithRedisPrefix(c.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if c.Type == "redis" {
		return redis, nil
	}
	return pkgcache.NewLayeredCache(redis,
		pkgcache.WithLayeredMemorySize(c.Memory.MaxSize),
		pkgcache.WithLayeredMaxL1TTL(c.Layered.MaxL1TTL),
	), nil
}

// ProvideChunkCache wraps the store with sealed/live chunk lifetimes.
func ProvideChunkCache(store pkgcache.Service, cfg *config.Config, l *applogger.Logger) *svccache.ChunkCache {
	return svccache.NewChunkCache(store,
		svccache.WithSealedTTL(cfg.Cache.SealedTTL),
		svccache.WithLiveTTL(cfg.Cache.LiveTTL),
		svccache.WithLogger(l),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideChunkEventPublisher announces sealed chunks on Kafka when a producer exists.
func ProvideChunkEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ChunkEventPublisher {
	if producer == nil {
		return internalrepo.NoopChunkEventPublisher{}
	}
	return internalrepo.NewKafkaChunkEventPublisher(producer, cfg.Kafka.SealedTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideLiveInvalidator handles candlestick update messages.
func ProvideLiveInvalidator(cfg *config.Config, cache *svccache.ChunkCache, m repository.Metrics, l *applogger.Logger) *usecase.LiveInvalidator {
	return usecase.NewLiveInvalidator(cfg.Kafka.UpdatesTopic, cache, m, l)
}

// ProvideCandlesticksUseCase creates the getBars pipeline.
func ProvideCandlesticksUseCase(
	cfg *config.Config,
	source repository.ChunkSource,
	cache *svccache.ChunkCache,
	events repository.ChunkEventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CandlesticksUseCase {
	return usecase.NewCandlesticksUseCase(source, cache,
		usecase.WithChunkSize(cfg.Chunks.Size),
		usecase.WithKeyOrdering(cfg.Chunks.KeyOrdering),
		usecase.WithDevelopment(cfg.IsDevelopment()),
		usecase.WithEventPublisher(events),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

// ProvideRateLimiter creates the per-IP limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
}

// ProvideHTTPServer creates the Echo server with the chart API routes.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.CandlesticksUseCase,
	cache *svccache.ChunkCache,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORS(cfg.Server.CORSOrigins))
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts = append(opts, xhttp.WithMetricsPath(metricsPath))
	if limiter != nil {
		opts = append(opts, xhttp.WithMiddleware(limiter.Middleware()))
	}

	h := api.NewCandlesticksEchoHandler(l, uc, cache.LiveTTL())
	return xhttp.NewServer(l, []xhttp.Handler{h}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	invalidator *usecase.LiveInvalidator,
	limiter *ratelimit.Limiter,
	source repository.ChunkSource,
	store pkgcache.Service,
	events repository.ChunkEventPublisher,
) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithCloser("chunk source", source),
		server.WithCloser("cache store", store),
		server.WithCloser("chunk events", events),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, invalidator))
	}
	if limiter != nil {
		opts = append(opts, server.WithBackground("rate limit sweep", func(ctx context.Context) {
			limiter.Run(ctx, time.Minute)
		}))
	}
	return server.New(l, httpServer, opts...)
}
