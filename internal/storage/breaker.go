package storage

import (
	"context"
	"errors"

	"github.com/fjod/foodcart/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// breakerBackend fails fast while the wrapped backend is known to be down, so
// a dead redis or mongo does not stall every cart mutation for a full timeout.
type breakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// WithBreaker wraps b in a circuit breaker. ErrNotFound is not a failure.
func WithBreaker(b Backend, name string, cfg circuitbreaker.Config, logger *zap.Logger) Backend {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	}
	return &breakerBackend{
		next: b,
		cb:   circuitbreaker.New[[]byte](name, cfg, logger),
	}
}

func (b *breakerBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *breakerBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}

func (b *breakerBackend) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

func (b *breakerBackend) Close() error {
	if c, ok := b.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
