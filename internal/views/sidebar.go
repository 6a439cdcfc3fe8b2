package views

import (
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
)

type SidebarView struct {
	Open      bool   `json:"open"`
	Lines     []Line `json:"items"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
	Empty     bool   `json:"empty"`
}

// Sidebar is the slide-out cart panel.
type Sidebar struct {
	consumer
	lineControls
}

func NewSidebar(s *store.Store, f pricing.Formatter) *Sidebar {
	sb := &Sidebar{lineControls: lineControls{cart: s}}
	sb.attach(s, f)
	return sb
}

func (sb *Sidebar) Render() SidebarView {
	snap := sb.snapshot()
	return SidebarView{
		Open:      snap.PanelOpen,
		Lines:     sb.lines(snap.Items()),
		ItemCount: snap.ItemCount,
		Subtotal:  sb.format.Format(snap.Total),
		Empty:     snap.Ledger.IsEmpty(),
	}
}

// Dismiss closes the panel.
func (sb *Sidebar) Dismiss() {
	sb.store.ClosePanel()
}
