package cache_utils

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"tenantbase-backend/internal/config"
)

const DefaultCacheTimeout = 5 * time.Second

// NewValkeyClient connects to the valkey instance described by env. The caller
// owns the client and passes it to every cache util that needs it.
func NewValkeyClient(env *config.Env) (valkey.Client, error) {
	options := valkey.ClientOption{
		InitAddress: []string{env.ValkeyHost + ":" + env.ValkeyPort},
		Password:    env.ValkeyPassword,
		Username:    env.ValkeyUsername,
	}

	if env.ValkeyIsSsl {
		options.TLSConfig = &tls.Config{
			ServerName: env.ValkeyHost,
		}
	}

	return valkey.NewClient(options)
}

// CacheUtil stores JSON-encoded values of type T under a fixed key prefix with
// a per-util TTL.
type CacheUtil[T any] struct {
	client  valkey.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

func NewCacheUtil[T any](
	client valkey.Client,
	prefix string,
	ttl time.Duration,
	logger *slog.Logger,
) *CacheUtil[T] {
	return &CacheUtil[T]{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		timeout: DefaultCacheTimeout,
		logger:  logger,
	}
}

func (c *CacheUtil[T]) Set(key string, value *T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := c.client.B().Set().
		Key(c.prefix + key).
		Value(string(encoded)).
		Ex(c.ttl).
		Build()

	return c.client.Do(ctx, cmd).Error()
}

func (c *CacheUtil[T]) Get(key string) *T {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build())
	if result.Error() != nil {
		if !valkey.IsValkeyNil(result.Error()) {
			c.logger.Error("Failed to get cached value", "key", key, "error", result.Error())
		}
		return nil
	}

	raw, err := result.AsBytes()
	if err != nil {
		return nil
	}

	return c.decode(key, raw)
}

// GetAndDelete atomically takes the value out of the cache. Returns nil when
// the key is missing or expired.
func (c *CacheUtil[T]) GetAndDelete(key string) *T {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result := c.client.Do(ctx, c.client.B().Getdel().Key(c.prefix+key).Build())
	if result.Error() != nil {
		if !valkey.IsValkeyNil(result.Error()) {
			c.logger.Error("Failed to take cached value", "key", key, "error", result.Error())
		}
		return nil
	}

	raw, err := result.AsBytes()
	if err != nil {
		return nil
	}

	return c.decode(key, raw)
}

func (c *CacheUtil[T]) Invalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build()).Error(); err != nil {
		c.logger.Error("Failed to invalidate cached value", "key", key, "error", err)
	}
}

func (c *CacheUtil[T]) decode(key string, raw []byte) *T {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Error("Failed to decode cached value", "key", key, "error", err)
		return nil
	}

	return &value
}
