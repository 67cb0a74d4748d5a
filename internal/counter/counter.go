// Package counter implements the hit counter on top of an external
// key-value store.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/hitcounter/internal/hitevents"
	"github.com/mohammed-shakir/hitcounter/internal/logger"
	"github.com/mohammed-shakir/hitcounter/internal/observability"
)

const DefaultKey = "hits"

// ErrStoreUnavailable marks failures to reach the store at all, as opposed to
// the store answering with an error.
var ErrStoreUnavailable = errors.New("counter store unavailable")

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Store is the slice of the key-value store the counter needs.
type Store interface {
	// IncrGet increments key by one and returns the value it now holds.
	IncrGet(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

type Publisher interface {
	Publish(ev hitevents.Event)
}

type Options struct {
	Key       string
	OpTimeout time.Duration
	Logger    *slog.Logger
	Events    Publisher
}

type Service struct {
	store     Store
	key       string
	opTimeout time.Duration
	log       *slog.Logger
	events    Publisher
}

func New(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("counter: store is required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:     store,
		key:       opts.Key,
		opTimeout: opts.OpTimeout,
		log:       opts.Logger,
		events:    opts.Events,
	}, nil
}

func (s *Service) Key() string { return s.key }

// Hit records one hit and returns the counter value after it.
func (s *Service) Hit(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.store.IncrGet(ctx, s.key)
	if err != nil {
		return 0, fmt.Errorf("hit %q: %w", s.key, err)
	}
	observability.ObserveHit(n)
	s.log.DebugContext(ctx, "hit counted", "key", s.key, "value", n)

	if s.events != nil {
		s.events.Publish(hitevents.Event{
			Key:       s.key,
			Value:     n,
			TS:        time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	return n, nil
}

// Current reads the counter without changing it. A missing key reads as 0.
func (s *Service) Current(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.store.Get(ctx, s.key)
	if err != nil {
		return 0, fmt.Errorf("read %q: %w", s.key, err)
	}
	return n, nil
}

// Ready reports whether the store answers.
func (s *Service) Ready(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Ping(ctx)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
