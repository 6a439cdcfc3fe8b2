package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

type SnapshotItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	ImageRef  string          `json:"image,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// Snapshot is the cart as handed to the checkout flow. Amounts are full
// precision and encoded as JSON strings.
type Snapshot struct {
	CheckoutID  string          `json:"checkout_id"`
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	Items       []SnapshotItem  `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	CapturedAt  time.Time       `json:"captured_at"`
}
