// Package views holds the read models rendered by the storefront: the header
// badge, the slide-out sidebar, the cart page and the checkout summary.
//
// Every view subscribes to one store.Store and keeps only the latest snapshot
// the store delivered. Money is formatted through pricing; no view computes
// delivery or tax itself.
package views

import (
	"context"
	"sync/atomic"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
)

// Line is one cart line as the storefront shows it.
type Line struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
	ImageRef    string `json:"image,omitempty"`
	Notes       string `json:"notes,omitempty"`
	RemovesLine bool   `json:"decrease_removes"`
}

// consumer is the subscription plumbing shared by every view.
type consumer struct {
	store       *store.Store
	format      pricing.Formatter
	current     atomic.Pointer[store.Snapshot]
	unsubscribe func()
}

func (c *consumer) attach(s *store.Store, f pricing.Formatter) {
	c.store = s
	c.format = f
	c.unsubscribe = s.Subscribe(func(snap store.Snapshot) {
		c.current.Store(&snap)
	})
}

func (c *consumer) snapshot() store.Snapshot {
	if snap := c.current.Load(); snap != nil {
		return *snap
	}
	return c.store.Snapshot()
}

// Close stops the view from receiving updates.
func (c *consumer) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *consumer) lines(items []domain.CartItem) []Line {
	out := make([]Line, 0, len(items))
	for _, item := range items {
		out = append(out, Line{
			ID:          item.ID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   c.format.Format(item.UnitPrice),
			LineTotal:   c.format.Format(item.LineTotal()),
			ImageRef:    item.ImageRef,
			Notes:       item.Notes,
			RemovesLine: item.Quantity <= 1,
		})
	}
	return out
}

// lineControls are the quantity buttons rendered next to each line.
type lineControls struct {
	cart *store.Store
}

func (c lineControls) Increase(ctx context.Context, id string) {
	c.cart.Increment(ctx, id)
}

// Decrease lowers the quantity by one. On a quantity-1 line it removes the
// line; it never leaves a zero-quantity entry.
func (c lineControls) Decrease(ctx context.Context, id string) {
	c.cart.Decrement(ctx, id)
}

func (c lineControls) Remove(ctx context.Context, id string) {
	c.cart.Remove(ctx, id)
}
