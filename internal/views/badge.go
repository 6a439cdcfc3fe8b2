package views

import (
	"strconv"

	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/store"
)

// maxBadgeCount is the largest count the badge prints before switching to "99+".
const maxBadgeCount = 99

type BadgeView struct {
	Count int    `json:"count"`
	Label string `json:"label"`
	Open  bool   `json:"panel_open"`
}

// Badge is the header cart icon. Clicking it opens the cart panel.
type Badge struct {
	consumer
}

func NewBadge(s *store.Store, f pricing.Formatter) *Badge {
	b := &Badge{}
	b.attach(s, f)
	return b
}

func (b *Badge) Render() BadgeView {
	snap := b.snapshot()
	return BadgeView{
		Count: snap.ItemCount,
		Label: badgeLabel(snap.ItemCount),
		Open:  snap.PanelOpen,
	}
}

func (b *Badge) Click() {
	b.store.OpenPanel()
}

func badgeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > maxBadgeCount:
		return strconv.Itoa(maxBadgeCount) + "+"
	default:
		return strconv.Itoa(n)
	}
}
