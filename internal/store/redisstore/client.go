// Package redisstore implements the counter store on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/hitcounter/internal/counter"
	"github.com/mohammed-shakir/hitcounter/internal/observability"
)

type Option func(*redis.Options)

func WithPassword(pw string) Option {
	return func(o *redis.Options) { o.Password = pw }
}

func WithDB(db int) Option {
	return func(o *redis.Options) { o.DB = db }
}

func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

var _ counter.Store = (*Client)(nil)

// New builds the shared client. It does not dial; go-redis connects lazily
// and reconnects on demand, so a store that is down at startup recovers
// without a restart.
func New(addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}
	return &Client{rdb: redis.NewClient(ro)}, nil
}

// IncrGet runs INCR then GET on key inside one MULTI/EXEC.
func (c *Client) IncrGet(ctx context.Context, key string) (int64, error) {
	start := time.Now()

	var get *redis.StringCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, key)
		get = p.Get(ctx, key)
		return nil
	})
	err = classify(err)
	observe("incr_get", err, start)
	if err != nil {
		return 0, fmt.Errorf("redis INCR+GET %q: %w", key, err)
	}

	n, err := get.Int64()
	if err != nil {
		return 0, fmt.Errorf("redis GET %q: parse: %w", key, err)
	}
	return n, nil
}

// Get returns the integer at key; a missing key reads as 0.
func (c *Client) Get(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		observe("get", nil, start)
		return 0, nil
	}
	err = classify(err)
	observe("get", err, start)
	if err != nil {
		return 0, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return n, nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := classify(c.rdb.Ping(ctx).Err())
	observe("ping", err, start)
	if err != nil {
		return fmt.Errorf("redis PING: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// observe skips calls abandoned by the caller; they say nothing about the
// store.
func observe(op string, err error, start time.Time) {
	if errors.Is(err, context.Canceled) {
		return
	}
	result := observability.ResultOK
	switch {
	case counter.IsUnavailable(err):
		result = observability.ResultUnavailable
	case err != nil:
		result = observability.ResultError
	}
	observability.ObserveStoreOp(op, result, time.Since(start).Seconds())
}

// classify tags connectivity failures with counter.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil || !unreachable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", counter.ErrStoreUnavailable, err)
}

func unreachable(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, redis.ErrClosed):
		return true
	}
	return false
}
