// Package checkout hands a priced cart snapshot to the external checkout flow.
// It does not clear the cart; the cart is emptied when the order is confirmed.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/foodcart/internal/metrics"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
	"github.com/fjod/foodcart/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnauthenticated = errors.New("checkout requires a signed-in user")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
)

type Handoff struct {
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

type Option func(*Handoff)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handoff) { h.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handoff) { h.metrics = m }
}

func NewHandoff(p Publisher, opts ...Option) *Handoff {
	h := &Handoff{
		publisher: p,
		logger:    zap.NewNop(),
		metrics:   metrics.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Begin prices snap and publishes it for userID.
func (h *Handoff) Begin(ctx context.Context, userID, sessionID string, snap store.Snapshot) (Snapshot, error) {
	log := logger.FromContext(ctx, h.logger)

	if userID == "" {
		h.metrics.CheckoutHandoffs.WithLabelValues("unauthenticated").Inc()
		return Snapshot{}, ErrUnauthenticated
	}
	if snap.Ledger.IsEmpty() {
		h.metrics.CheckoutHandoffs.WithLabelValues("empty").Inc()
		return Snapshot{}, ErrEmptyCart
	}

	out := h.build(userID, sessionID, snap)
	if err := h.publisher.Publish(ctx, out); err != nil {
		h.metrics.CheckoutHandoffs.WithLabelValues("failed").Inc()
		log.Error("checkout hand-off failed", zap.String("checkout_id", out.CheckoutID), zap.Error(err))
		return Snapshot{}, fmt.Errorf("hand off checkout: %w", err)
	}

	h.metrics.CheckoutHandoffs.WithLabelValues("published").Inc()
	log.Info("checkout handed off",
		zap.String("checkout_id", out.CheckoutID),
		zap.Int("item_count", snap.ItemCount),
		zap.String("grand_total", out.GrandTotal.String()))
	return out, nil
}

func (h *Handoff) build(userID, sessionID string, snap store.Snapshot) Snapshot {
	items := snap.Items()
	breakdown := pricing.Price(items)

	lines := make([]SnapshotItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, SnapshotItem{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
			ImageRef:  item.ImageRef,
			Notes:     item.Notes,
		})
	}

	return Snapshot{
		CheckoutID:  h.newID(),
		SessionID:   sessionID,
		UserID:      userID,
		Items:       lines,
		Subtotal:    breakdown.Subtotal,
		DeliveryFee: breakdown.DeliveryFee,
		Tax:         breakdown.Tax,
		GrandTotal:  breakdown.GrandTotal,
		CapturedAt:  h.now().UTC(),
	}
}
