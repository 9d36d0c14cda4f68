package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
)

// Redis configurable options.
type Options struct {
	// Redis server address.
	Address string
	// Password required when connecting to the Redis server.
	Password string
	// DB (namespace index) to connect to.
	DB int
	// TLS config.
	TLSConfig *tls.Config
	// PingRetries is the number of connection attempts beyond the first.
	PingRetries uint64
}

// DefaultOptions returns the options of the normal (non-test) namespace.
func DefaultOptions() Options {
	return Options{
		Address:     "localhost:6379",
		Password:    "", // no password set
		DB:          5,
		PingRetries: 3,
	}
}

// Client wraps a go-redis client and implements store.Cache.
type Client struct {
	rdb     *redis.Client
	options Options
}

// Open connects to Redis and pings it, retrying with Fibonacci backoff.
func Open(ctx context.Context, options Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		TLSConfig: options.TLSConfig,
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB,
	})

	b := retry.WithMaxRetries(options.PingRetries, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Debug("redis ping failed", "addr", options.Address, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s db %d: %w: %v", options.Address, options.DB, internalerr.ErrStoreUnavailable, err)
	}

	return &Client{rdb: rdb, options: options}, nil
}

// Options returns the options the client was opened with.
func (c *Client) Options() Options {
	return c.options
}

// Close the client's connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get executes the redis GET command. A missing key is reported as found=false.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ba, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return ba, true, nil
}

// Set executes the redis SET command without expiration.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

// Exists executes the redis EXISTS command for a single key.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete executes the redis DEL command.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Increment queues ZINCRBY/INCRBY commands in a MULTI/EXEC pipeline so a
// batch is applied in one round trip and never interleaves with other writers.
func (c *Client) Increment(ctx context.Context, incs []store.Increment) error {
	if len(incs) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, inc := range incs {
			if inc.Member == "" {
				pipe.IncrBy(ctx, inc.Key, inc.By)
			} else {
				pipe.ZIncrBy(ctx, inc.Key, float64(inc.By), inc.Member)
			}
		}
		return nil
	})
	return err
}

// RevRange executes ZREVRANGE ... WITHSCORES.
func (c *Client) RevRange(ctx context.Context, key string, start, stop int64) ([]store.ScoredMember, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return nil, nil
	}
	out := make([]store.ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = store.ScoredMember{Member: fmt.Sprint(z.Member), Score: z.Score}
	}
	return out, nil
}

// Flush clears the selected namespace. Be cautious calling this method.
func (c *Client) Flush(ctx context.Context) error {
	return c.rdb.FlushDB(ctx).Err()
}

var _ store.Cache = (*Client)(nil)
