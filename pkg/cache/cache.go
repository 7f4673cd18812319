package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrDecode marks a stored value that could not be decoded into the requested type.
	ErrDecode = errors.New("cache: decode")
)

// NoExpiration keeps an entry until it is deleted or evicted.
const NoExpiration time.Duration = 0

// Service is a byte-oriented key/value cache. An expiration of NoExpiration
// stores the value without a TTL.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes keys matching a glob where '*' matches any run of characters.
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON reads key and decodes it into a T. Numbers inside interface
// values are kept as json.Number.
func GetJSON[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	data, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w %s: %w", ErrDecode, key, err)
	}
	return out, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Service, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, expiration)
}

// SetNXJSON encodes value and stores it only when key is absent.
func SetNXJSON(ctx context.Context, c Service, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.SetNX(ctx, key, data, expiration)
}
