// Package persistence round-trips a cart ledger through a storage.Backend.
// It is the only place persisted data is interpreted; whatever it returns is
// a well-formed ledger.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/foodcart/internal/ledger"
	"github.com/fjod/foodcart/internal/metrics"
	"github.com/fjod/foodcart/internal/storage"
	"github.com/fjod/foodcart/pkg/logger"
	"go.uber.org/zap"
)

const defaultTimeout = 2 * time.Second

type Adapter struct {
	backend storage.Backend
	key     string
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Adapter)

func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithTimeout bounds each storage call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAdapter(backend storage.Backend, key string, opts ...Option) *Adapter {
	a := &Adapter{
		backend: backend,
		key:     key,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Key() string {
	return a.key
}

// Load rehydrates the ledger. It never fails: a missing key or unavailable
// storage gives an empty ledger, and an unreadable payload is deleted so the
// next load starts clean.
func (a *Adapter) Load(ctx context.Context) ledger.Ledger {
	log := logger.FromContext(ctx, a.logger).With(zap.String("key", a.key))

	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	raw, err := a.backend.Get(opCtx, a.key)
	if errors.Is(err, storage.ErrNotFound) {
		return ledger.Ledger{}
	}
	if err != nil {
		log.Warn("cart storage unavailable, starting empty", zap.Error(err))
		a.metrics.LoadRecoveries.WithLabelValues("unavailable").Inc()
		return ledger.Ledger{}
	}

	l, report, err := Decode(raw)
	if err != nil {
		log.Warn("discarding unreadable persisted cart", zap.Error(err), zap.Int("bytes", len(raw)))
		a.metrics.LoadRecoveries.WithLabelValues("corrupt").Inc()
		if delErr := a.backend.Delete(opCtx, a.key); delErr != nil {
			log.Warn("failed to clear unreadable cart", zap.Error(delErr))
		}
		return ledger.Ledger{}
	}

	if !report.Clean() {
		log.Info("normalized persisted cart",
			zap.Int("dropped", report.Dropped),
			zap.Int("defaulted", report.Defaulted))
		a.metrics.LoadRecoveries.WithLabelValues("normalized").Inc()
	}
	return l
}

// Save writes l synchronously. Failures are logged and returned for the
// caller's information only; the in-memory ledger stays authoritative.
func (a *Adapter) Save(ctx context.Context, l ledger.Ledger) error {
	data, err := Encode(l)
	if err == nil {
		opCtx, cancel := a.opContext(ctx)
		defer cancel()
		err = a.backend.Set(opCtx, a.key, data)
	}
	if err != nil {
		logger.FromContext(ctx, a.logger).Error("failed to persist cart",
			zap.String("key", a.key),
			zap.Int("items", l.Len()),
			zap.Error(err))
		a.metrics.PersistFailures.Inc()
		return err
	}
	return nil
}

// opContext detaches storage calls from request cancellation: a committed
// mutation is written even if the client has gone away.
func (a *Adapter) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
}
