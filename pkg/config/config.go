package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

type Config struct {
	Environment string `yaml:"environment" default:"production"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		RPS     float64       `yaml:"rps" default:"20"`
		Burst   int           `yaml:"burst" default:"40"`
		IdleTTL time.Duration `yaml:"idle_ttl" default:"5m"`
	} `yaml:"rate_limit"`
	Chunks ChunksConfig `yaml:"chunks"`
	Source SourceConfig `yaml:"source"`
	Cache  CacheConfig  `yaml:"cache"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

type ChunksConfig struct {
	Size        int      `yaml:"size" default:"500"`
	KeyOrdering []string `yaml:"key_ordering"`
}

// SourceConfig selects where chunk metadata and rows come from.
type SourceConfig struct {
	Type      string `yaml:"type" default:"postgrest"` // postgrest, postgres, clickhouse
	PageSize  int    `yaml:"page_size" default:"500"`
	PostgREST struct {
		URL     string        `yaml:"url" default:"http://localhost:3000"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"postgrest"`
	Postgres struct {
		DSN              string        `yaml:"dsn"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"5432"`
		Database         string        `yaml:"database" default:"postgres"`
		User             string        `yaml:"user" default:"postgres"`
		Password         string        `yaml:"password"`
		SSLMode          string        `yaml:"ssl_mode" default:"disable"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		ConnMaxIdleTime  time.Duration `yaml:"conn_max_idle_time" default:"5m"`
		StatementTimeout time.Duration `yaml:"statement_timeout" default:"10s"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"candlesticks"`
		UseHTTP          bool          `yaml:"use_http"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// CacheConfig configures the chunk cache store.
// A live_ttl of 0 disables caching of live chunks; a sealed_ttl of 0 keeps sealed chunks forever.
type CacheConfig struct {
	Type      string        `yaml:"type" default:"memory"` // memory, redis, layered
	LiveTTL   time.Duration `yaml:"live_ttl" default:"10s"`
	SealedTTL time.Duration `yaml:"sealed_ttl"`
	Memory    struct {
		MaxSize         int           `yaml:"max_size" default:"10000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
	} `yaml:"memory"`
	Layered struct {
		MaxL1TTL time.Duration `yaml:"max_l1_ttl" default:"10m"`
	} `yaml:"layered"`
	Redis struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"20"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"5"`
		Timeout      time.Duration `yaml:"timeout" default:"3s"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		Prefix       string        `yaml:"prefix" default:"chartfeed"`
	} `yaml:"redis"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	SealedTopic  string   `yaml:"sealed_topic" default:"chunks.sealed"`
	UpdatesTopic string   `yaml:"updates_topic" default:"candlesticks.updated"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID     string        `yaml:"group_id" default:"chartfeed"`
		StartOffset string        `yaml:"start_offset" default:"latest"`
		Workers     int           `yaml:"workers" default:"4"`
		BufferSize  int           `yaml:"buffer_size" default:"256"`
		RetryMax    int           `yaml:"retry_max" default:"3"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic    string        `yaml:"dlq_topic"`
		MinBytes    int           `yaml:"min_bytes" default:"1"`
		MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

// Load builds the configuration from struct defaults overlaid by the YAML file at path.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with a .env file (if present) and environment overrides applied on top.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("POSTGREST_URL"); v != "" {
		c.Source.PostgREST.URL = v
	}
	if v := os.Getenv("POSTGREST_API_KEY"); v != "" {
		c.Source.PostgREST.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Source.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Source.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Source.ClickHouse.Password = v
	}
	if v := os.Getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}

	ints := map[string]*int{
		"PORT":       &c.Server.Port,
		"CHUNK_SIZE": &c.Chunks.Size,
		"PAGE_SIZE":  &c.Source.PageSize,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}
	if v := os.Getenv("CACHE_LIVE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env CACHE_LIVE_TTL: %w", err)
		}
		c.Cache.LiveTTL = d
	}
	return nil
}

// IsDevelopment reports whether data-shape problems should fail requests.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("environment must be one of development, staging, production, got %q", c.Environment)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Chunks.Size <= 0 {
		return fmt.Errorf("chunks.size must be positive")
	}
	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be positive")
	}

	switch c.Source.Type {
	case "postgrest":
		if c.Source.PostgREST.URL == "" {
			return fmt.Errorf("source.postgrest.url is required")
		}
	case "postgres":
		if c.Source.Postgres.DSN == "" && c.Source.Postgres.Host == "" {
			return fmt.Errorf("source.postgres needs dsn or host")
		}
	case "clickhouse":
		if c.Source.ClickHouse.Host == "" || c.Source.ClickHouse.Table == "" {
			return fmt.Errorf("source.clickhouse.host and table are required")
		}
	default:
		return fmt.Errorf("source.type must be 'postgrest', 'postgres' or 'clickhouse', got '%s'", c.Source.Type)
	}

	switch c.Cache.Type {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Type)
	}
	if c.Cache.LiveTTL < 0 || c.Cache.SealedTTL < 0 {
		return fmt.Errorf("cache ttls cannot be negative")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.rps and burst must be positive")
	}
	return nil
}
