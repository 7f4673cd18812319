package cache

import (
	"net"
	"strconv"
	"time"
)

// Defaults applied before options.
const (
	defaultRedisAddr        = "localhost:6379"
	defaultRedisPrefix      = "chartfeed"
	defaultRedisPoolSize    = 10
	defaultRedisMinIdle     = 5
	defaultRedisPoolTimeout = 30 * time.Second
	defaultRedisDialTimeout = 5 * time.Second

	defaultMemoryMaxSize = 1000
	defaultCleanup       = 5 * time.Minute
)

// RedisOption configures NewRedisCache.
type RedisOption func(*RedisConfig)

// RedisConfig is the connection setup of the Redis chunk store. Prefix is
// prepended to every key so several deployments can share one database.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	DialTimeout  time.Duration
	Prefix       string
}

func newRedisConfig(opts ...RedisOption) RedisConfig {
	cfg := RedisConfig{
		Addr:         defaultRedisAddr,
		PoolSize:     defaultRedisPoolSize,
		MinIdleConns: defaultRedisMinIdle,
		PoolTimeout:  defaultRedisPoolTimeout,
		DialTimeout:  defaultRedisDialTimeout,
		Prefix:       defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithRedisAddr sets the server address. IPv6 hosts are bracketed.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		if host == "" {
			return
		}
		c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithRedisAuth selects the database and the password used for AUTH.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the connection pool. Zero values keep the defaults.
func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle > 0 {
			c.MinIdleConns = minIdle
		}
		if timeout > 0 {
			c.PoolTimeout = timeout
		}
	}
}

// WithRedisDialTimeout bounds connecting and the startup ping.
func WithRedisDialTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if d > 0 {
			c.DialTimeout = d
		}
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures NewMemoryCache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig bounds the in-process store. Clock replaces time.Now in tests.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	Clock           func() time.Time
}

func newMemoryConfig(opts ...MemoryOption) MemoryConfig {
	cfg := MemoryConfig{
		MaxSize:         defaultMemoryMaxSize,
		CleanupInterval: defaultCleanup,
		Clock:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	// time.NewTicker panics on a non-positive interval.
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanup
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return cfg
}

// WithMemoryMaxSize caps the number of entries before LRU eviction.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// WithMemoryCleanup sets how often expired entries are swept.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryConfig) {
		c.Clock = now
	}
}

// LayeredOption configures NewLayeredCache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig sizes the memory tier. MaxL1TTL caps how long an entry stays
// in memory; 0 keeps the remote expiration, so sealed chunks stay until evicted.
type LayeredConfig struct {
	MemoryMaxSize int
	MaxL1TTL      time.Duration
}

func newLayeredConfig(opts ...LayeredOption) LayeredConfig {
	cfg := LayeredConfig{MemoryMaxSize: defaultMemoryMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithLayeredMemorySize(size int) LayeredOption {
	return func(c *LayeredConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
	}
}

func WithLayeredMaxL1TTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		c.MaxL1TTL = ttl
	}
}
