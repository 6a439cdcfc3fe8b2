package views

import (
	"context"

	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
)

type PageView struct {
	Lines     []Line          `json:"items"`
	ItemCount int             `json:"item_count"`
	Totals    pricing.Display `json:"totals"`
	Empty     bool            `json:"empty"`
}

// Page is the full cart page.
type Page struct {
	consumer
	lineControls
}

func NewPage(s *store.Store, f pricing.Formatter) *Page {
	p := &Page{lineControls: lineControls{cart: s}}
	p.attach(s, f)
	return p
}

func (p *Page) Render() PageView {
	snap := p.snapshot()
	items := snap.Items()
	return PageView{
		Lines:     p.lines(items),
		ItemCount: snap.ItemCount,
		Totals:    p.format.Breakdown(pricing.Price(items)),
		Empty:     len(items) == 0,
	}
}

func (p *Page) Clear(ctx context.Context) {
	p.store.Clear(ctx)
}
