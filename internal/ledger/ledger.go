// Package ledger holds the ordered, unique-by-id collection of cart lines.
//
// A Ledger is a value: every operation returns a new Ledger and leaves the
// receiver untouched, so a snapshot handed to a reader can never change under
// it.
package ledger

import (
	"github.com/fjod/foodcart/internal/domain"
	"github.com/shopspring/decimal"
)

// Ledger is the ordered set of cart lines, at most one per item id.
type Ledger struct {
	items []domain.CartItem
}

// New builds a ledger from items in order. Entries with an empty id or a
// quantity below 1 are skipped, later duplicates of an id are dropped and
// negative prices are clamped to zero.
func New(items ...domain.CartItem) Ledger {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		item.UnitPrice = domain.ClampPrice(item.UnitPrice)
		out = append(out, item)
	}
	return Ledger{items: out}
}

// Items returns a copy of the lines in insertion order.
func (l Ledger) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l Ledger) Len() int {
	return len(l.items)
}

func (l Ledger) IsEmpty() bool {
	return len(l.items) == 0
}

// Get returns the line for id.
func (l Ledger) Get(id string) (domain.CartItem, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return domain.CartItem{}, false
}

// ItemCount is the total number of units, not distinct lines.
func (l Ledger) ItemCount() int {
	n := 0
	for _, item := range l.items {
		n += item.Quantity
	}
	return n
}

// UpsertIncrement adds one unit of the candidate. An existing line keeps its
// name and position; its price is refreshed when the candidate carries one.
// A new line is appended with quantity 1. A candidate without an id is
// ignored.
func (l Ledger) UpsertIncrement(in domain.ItemInput) Ledger {
	if in.ID == "" {
		return l
	}

	items := l.Items()
	if i := l.index(in.ID); i >= 0 {
		item := items[i]
		item.Quantity++
		if in.Price.Valid {
			item.UnitPrice = domain.ClampPrice(in.Price.Decimal)
		}
		if in.ImageRef != "" {
			item.ImageRef = in.ImageRef
		}
		if in.Notes != "" {
			item.Notes = in.Notes
		}
		items[i] = item
		return Ledger{items: items}
	}

	price := decimal.Zero
	if in.Price.Valid {
		price = domain.ClampPrice(in.Price.Decimal)
	}
	items = append(items, domain.CartItem{
		ID:        in.ID,
		Name:      in.Name,
		UnitPrice: price,
		Quantity:  1,
		ImageRef:  in.ImageRef,
		Notes:     in.Notes,
	})
	return Ledger{items: items}
}

// Remove drops the line for id. Unknown ids are a no-op.
func (l Ledger) Remove(id string) Ledger {
	i := l.index(id)
	if i < 0 {
		return l
	}
	items := make([]domain.CartItem, 0, len(l.items)-1)
	items = append(items, l.items[:i]...)
	items = append(items, l.items[i+1:]...)
	return Ledger{items: items}
}

// SetQuantity replaces the quantity of id. A quantity below 1 removes the
// line. Unknown ids are a no-op.
func (l Ledger) SetQuantity(id string, qty int) Ledger {
	if qty < 1 {
		return l.Remove(id)
	}
	i := l.index(id)
	if i < 0 {
		return l
	}
	items := l.Items()
	items[i].Quantity = qty
	return Ledger{items: items}
}

func (l Ledger) Clear() Ledger {
	return Ledger{}
}

// Equal reports whether both ledgers hold the same lines in the same order.
func (l Ledger) Equal(o Ledger) bool {
	if len(l.items) != len(o.items) {
		return false
	}
	for i := range l.items {
		if !l.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

func (l Ledger) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
