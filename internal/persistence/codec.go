package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrCorrupt means the stored payload is not a JSON array at all.
var ErrCorrupt = errors.New("persisted cart is unreadable")

// record is the stored shape of one line.
type record struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Image    string      `json:"image,omitempty"`
	Quantity int         `json:"quantity"`
	Notes    string      `json:"notes,omitempty"`
}

// Report describes what Decode had to repair.
type Report struct {
	// Dropped counts entries that could not be kept (no id, not an object,
	// explicit quantity below 1, duplicate id).
	Dropped int
	// Defaulted counts entries whose price or quantity was missing or
	// non-numeric and fell back to 0 or 1.
	Defaulted int
}

func (r Report) Clean() bool {
	return r.Dropped == 0 && r.Defaulted == 0
}

// Encode serializes l as a JSON array of records, preserving order.
func Encode(l ledger.Ledger) ([]byte, error) {
	items := l.Items()
	records := make([]record, 0, len(items))
	for _, item := range items {
		records = append(records, record{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(item.UnitPrice.String()),
			Image:    item.ImageRef,
			Quantity: item.Quantity,
			Notes:    item.Notes,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

// Decode reads a stored payload, accepting legacy and hand-edited shapes:
// string-typed numbers, missing image/notes, numeric ids. Anything that is
// not a JSON array yields ErrCorrupt.
func Decode(raw []byte) (ledger.Ledger, Report, error) {
	var report Report
	if !gjson.ValidBytes(raw) {
		return ledger.Ledger{}, report, ErrCorrupt
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return ledger.Ledger{}, report, ErrCorrupt
	}

	items := make([]domain.CartItem, 0)
	seen := make(map[string]struct{})
	root.ForEach(func(_, v gjson.Result) bool {
		item, ok, defaulted := decodeItem(v)
		if defaulted {
			report.Defaulted++
		}
		if !ok {
			report.Dropped++
			return true
		}
		if _, dup := seen[item.ID]; dup {
			report.Dropped++
			return true
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
		return true
	})

	return ledger.New(items...), report, nil
}

func decodeItem(v gjson.Result) (item domain.CartItem, ok bool, defaulted bool) {
	if !v.IsObject() {
		return domain.CartItem{}, false, false
	}

	id, ok := domain.IDFrom(v.Get("id"))
	if !ok {
		return domain.CartItem{}, false, false
	}

	qty, qtyOK := domain.QuantityFrom(v.Get("quantity"))
	if !qtyOK {
		qty = 1
		defaulted = true
	} else if qty < 1 {
		return domain.CartItem{}, false, false
	}

	price, priceOK := domain.PriceFrom(v.Get("price"))
	if !priceOK {
		price = decimal.Zero
		defaulted = true
	}

	return domain.CartItem{
		ID:        id,
		Name:      domain.TextFrom(v.Get("name")),
		UnitPrice: price,
		Quantity:  qty,
		ImageRef:  domain.TextFrom(v.Get("image")),
		Notes:     domain.TextFrom(v.Get("notes")),
	}, true, defaulted
}
