// Package store owns the live cart of one shopper: the ledger, the
// panel-open flag and the subscribers rendering them.
package store

import (
	"context"
	"sync"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/ledger"
	"github.com/fjod/foodcart/internal/metrics"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Persister is the durable side of the store. Save is called once per
// mutation, synchronously, before the mutation is visible to subscribers.
type Persister interface {
	Load(ctx context.Context) ledger.Ledger
	Save(ctx context.Context, l ledger.Ledger) error
}

// Snapshot is an immutable view of the store at one version.
type Snapshot struct {
	Ledger    ledger.Ledger
	PanelOpen bool
	ItemCount int
	Total     decimal.Decimal
	Version   uint64
}

// Items returns the lines in insertion order.
func (s Snapshot) Items() []domain.CartItem {
	return s.Ledger.Items()
}

// Listener receives snapshots in version order. It may read from the store
// but must not mutate it synchronously.
type Listener func(Snapshot)

type subscription struct {
	id        uint64
	fn        Listener
	mu        sync.Mutex
	delivered bool
	last      uint64
}

func (s *subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delivered && snap.Version <= s.last {
		return
	}
	s.delivered = true
	s.last = snap.Version
	s.fn(snap)
}

type Store struct {
	mu        sync.Mutex
	ledger    ledger.Ledger
	panelOpen bool
	version   uint64
	subs      []*subscription
	nextSubID uint64

	persist Persister
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store rehydrated from p.
func New(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		logger:  zap.NewNop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = p.Load(ctx)
	return s
}

// Add puts one more unit of in into the cart. It does not open the panel.
func (s *Store) Add(ctx context.Context, in domain.ItemInput) {
	s.commit(ctx, "add", func(l ledger.Ledger) ledger.Ledger {
		return l.UpsertIncrement(in)
	})
}

func (s *Store) Remove(ctx context.Context, id string) {
	s.commit(ctx, "remove", func(l ledger.Ledger) ledger.Ledger {
		return l.Remove(id)
	})
}

// SetQuantity sets the quantity of id; qty < 1 removes the line.
func (s *Store) SetQuantity(ctx context.Context, id string, qty int) {
	s.commit(ctx, "set_quantity", func(l ledger.Ledger) ledger.Ledger {
		return l.SetQuantity(id, qty)
	})
}

// Increment adds one unit to an existing line. Unknown ids are a no-op.
func (s *Store) Increment(ctx context.Context, id string) {
	s.commit(ctx, "increment", func(l ledger.Ledger) ledger.Ledger {
		item, ok := l.Get(id)
		if !ok {
			return l
		}
		return l.SetQuantity(id, item.Quantity+1)
	})
}

// Decrement removes one unit; at quantity 1 the line is removed.
func (s *Store) Decrement(ctx context.Context, id string) {
	s.commit(ctx, "decrement", func(l ledger.Ledger) ledger.Ledger {
		item, ok := l.Get(id)
		if !ok {
			return l
		}
		return l.SetQuantity(id, item.Quantity-1)
	})
}

func (s *Store) Clear(ctx context.Context) {
	s.commit(ctx, "clear", func(l ledger.Ledger) ledger.Ledger {
		return l.Clear()
	})
}

func (s *Store) OpenPanel() {
	s.SetPanelOpen(true)
}

func (s *Store) ClosePanel() {
	s.SetPanelOpen(false)
}

// SetPanelOpen changes the shared panel flag. Panel state is not persisted.
func (s *Store) SetPanelOpen(open bool) {
	s.mu.Lock()
	if s.panelOpen == open {
		s.mu.Unlock()
		return
	}
	s.panelOpen = open
	s.version++
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
}

func (s *Store) IsPanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

// ItemCount is the number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ItemCount()
}

// Total is the cart subtotal.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Subtotal(s.ledger.Items())
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Items()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn and immediately delivers the current snapshot to it.
// The returned function unregisters fn.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	sub := &subscription{id: s.nextSubID, fn: fn}
	s.subs = append(s.subs, sub)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	sub.deliver(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, existing := range s.subs {
				if existing.id == sub.id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// commit applies f, writes the result through to storage and then notifies
// subscribers. The store lock is held across the write so that a mutation
// is persisted before the next one is accepted.
func (s *Store) commit(ctx context.Context, op string, f func(ledger.Ledger) ledger.Ledger) {
	s.mu.Lock()
	s.ledger = f(s.ledger)
	s.version++
	_ = s.persist.Save(ctx, s.ledger)
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	s.metrics.Mutations.WithLabelValues(op).Inc()
	logger.FromContext(ctx, s.logger).Debug("cart mutated",
		zap.String("op", op),
		zap.Uint64("version", snap.Version),
		zap.Int("item_count", snap.ItemCount))

	notify(subs, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Ledger:    s.ledger,
		PanelOpen: s.panelOpen,
		ItemCount: s.ledger.ItemCount(),
		Total:     pricing.Subtotal(s.ledger.Items()),
		Version:   s.version,
	}
}

func (s *Store) subscribersLocked() []*subscription {
	out := make([]*subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

func notify(subs []*subscription, snap Snapshot) {
	for _, sub := range subs {
		sub.deliver(snap)
	}
}
