// Package storage provides the durable key/value slots the cart is persisted
// into. A cart occupies exactly one key holding its serialized ledger.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Backend is a durable string-keyed byte store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}
