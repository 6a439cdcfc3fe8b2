// Package session keeps one live cart per shopper session.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/foodcart/internal/metrics"
	"github.com/fjod/foodcart/internal/persistence"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/storage"
	"github.com/fjod/foodcart/internal/store"
	"github.com/fjod/foodcart/internal/views"
	"github.com/fjod/foodcart/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "cart:"

	// MaxIDLength bounds client-supplied session ids.
	MaxIDLength = 128

	defaultIdleTTL = 30 * time.Minute
)

var ErrInvalidSession = errors.New("invalid session id")

// ValidID reports whether id can name a session: non-empty, at most
// MaxIDLength bytes of letters, digits, '-' and '_'.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Key is the storage key a session's ledger is persisted under.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Cart is a session's store together with the views rendering it.
type Cart struct {
	SessionID string
	Store     *store.Store
	Badge     *views.Badge
	Sidebar   *views.Sidebar
	Page      *views.Page
	Summary   *views.Summary

	lastUsed atomic.Int64
}

func (c *Cart) touch(now time.Time) {
	c.lastUsed.Store(now.UnixNano())
}

func (c *Cart) idleSince() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *Cart) close() {
	c.Badge.Close()
	c.Sidebar.Close()
	c.Page.Close()
	c.Summary.Close()
}

type Registry struct {
	backend        storage.Backend
	format         pricing.Formatter
	storageTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
	idleTTL        time.Duration
	maxSessions    int
	now            func() time.Time

	mu    sync.RWMutex
	carts map[string]*Cart
	group singleflight.Group
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithFormatter(f pricing.Formatter) Option {
	return func(r *Registry) { r.format = f }
}

func WithStorageTimeout(d time.Duration) Option {
	return func(r *Registry) { r.storageTimeout = d }
}

// WithIdleTTL sets how long an unused session stays in memory.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithMaxSessions caps the sessions held in memory; opening one more evicts
// the least recently used. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(r *Registry) { r.maxSessions = n }
}

func NewRegistry(backend storage.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		format:  pricing.NewFormatter(pricing.DefaultSymbol),
		logger:  zap.NewNop(),
		metrics: metrics.Nop(),
		idleTTL: defaultIdleTTL,
		now:     time.Now,
		carts:   make(map[string]*Cart),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session's cart, rehydrating it from storage on first use.
// Concurrent first requests for one session share a single load.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if !ValidID(sessionID) {
		return nil, ErrInvalidSession
	}
	if cart, ok := r.Lookup(sessionID); ok {
		cart.touch(r.now())
		return cart, nil
	}

	v, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		if cart, ok := r.Lookup(sessionID); ok {
			return cart, nil
		}
		cart := r.open(ctx, sessionID)
		cart.touch(r.now())

		r.mu.Lock()
		r.carts[sessionID] = cart
		if r.maxSessions > 0 && len(r.carts) > r.maxSessions {
			r.evictOldestLocked(sessionID)
		}
		n := len(r.carts)
		r.mu.Unlock()

		r.metrics.ActiveSessions.Set(float64(n))
		logger.FromContext(ctx, r.logger).Debug("cart session opened",
			zap.String("session_id", sessionID),
			zap.Int("item_count", cart.Store.ItemCount()))
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// Lookup returns the cart only if it is already in memory.
func (r *Registry) Lookup(sessionID string) (*Cart, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[sessionID]
	return cart, ok
}

// Clear empties the session's cart through its store, so the cleared ledger
// is persisted and every view sees it.
func (r *Registry) Clear(ctx context.Context, sessionID string) error {
	cart, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	cart.Store.Clear(ctx)
	return nil
}

// Evict drops the session from memory. Its persisted ledger is kept, and a
// request still holding the cart can finish with it.
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	_, ok := r.carts[sessionID]
	delete(r.carts, sessionID)
	n := len(r.carts)
	r.mu.Unlock()

	if ok {
		r.metrics.ActiveSessions.Set(float64(n))
	}
}

// EvictIdle drops every session unused for longer than the idle TTL and
// returns how many were dropped.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	evicted := 0
	for id, cart := range r.carts {
		if cart.idleSince().Before(cutoff) {
			delete(r.carts, id)
			evicted++
		}
	}
	n := len(r.carts)
	r.mu.Unlock()

	if evicted > 0 {
		r.metrics.ActiveSessions.Set(float64(n))
		r.logger.Debug("idle cart sessions evicted", zap.Int("evicted", evicted), zap.Int("remaining", n))
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-ctx.Done():
			return
		}
	}
}

// evictOldestLocked drops the least recently used session other than keep.
func (r *Registry) evictOldestLocked(keep string) {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, cart := range r.carts {
		if id == keep {
			continue
		}
		if used := cart.idleSince(); oldestID == "" || used.Before(oldest) {
			oldestID, oldest = id, used
		}
	}
	if oldestID != "" {
		delete(r.carts, oldestID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// Close evicts every session.
func (r *Registry) Close() {
	r.mu.Lock()
	carts := r.carts
	r.carts = make(map[string]*Cart)
	r.mu.Unlock()

	for _, cart := range carts {
		cart.close()
	}
	r.metrics.ActiveSessions.Set(0)
}

func (r *Registry) open(ctx context.Context, sessionID string) *Cart {
	ctx = logger.WithSessionID(ctx, sessionID)
	adapter := persistence.NewAdapter(r.backend, Key(sessionID),
		persistence.WithLogger(r.logger),
		persistence.WithMetrics(r.metrics),
		persistence.WithTimeout(r.storageTimeout))

	s := store.New(ctx, adapter,
		store.WithLogger(r.logger),
		store.WithMetrics(r.metrics))

	return &Cart{
		SessionID: sessionID,
		Store:     s,
		Badge:     views.NewBadge(s, r.format),
		Sidebar:   views.NewSidebar(s, r.format),
		Page:      views.NewPage(s, r.format),
		Summary:   views.NewSummary(s, r.format),
	}
}
