package views

import (
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
)

type SummaryView struct {
	ItemCount int             `json:"item_count"`
	Totals    pricing.Display `json:"totals"`
	// FreeDelivery reports whether the subtotal already clears the threshold.
	FreeDelivery bool `json:"free_delivery"`
}

// Summary is the order summary shown beside checkout. It is read-only.
type Summary struct {
	consumer
}

func NewSummary(s *store.Store, f pricing.Formatter) *Summary {
	sm := &Summary{}
	sm.attach(s, f)
	return sm
}

func (sm *Summary) Render() SummaryView {
	snap := sm.snapshot()
	breakdown := pricing.Price(snap.Items())
	return SummaryView{
		ItemCount:    snap.ItemCount,
		Totals:       sm.format.Breakdown(breakdown),
		FreeDelivery: !snap.Ledger.IsEmpty() && breakdown.DeliveryFee.IsZero(),
	}
}

// Breakdown returns the unformatted figures, for the checkout hand-off.
func (sm *Summary) Breakdown() pricing.Breakdown {
	return pricing.Price(sm.snapshot().Items())
}
