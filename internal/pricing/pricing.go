// Package pricing derives the money figures of a cart. Every function is pure
// and safe to call from any goroutine.
package pricing

import (
	"github.com/fjod/foodcart/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// FreeDeliveryThreshold must be strictly exceeded for free delivery.
	FreeDeliveryThreshold = decimal.NewFromInt(5000)
	// DeliveryFlatFee is charged when the subtotal does not exceed the threshold.
	DeliveryFlatFee = decimal.NewFromInt(500)
	// TaxRate applies to the subtotal only; delivery is not taxed.
	TaxRate = decimal.RequireFromString("0.075")
)

// Breakdown is the full set of figures for one ledger. Values keep full
// precision; round only for display.
type Breakdown struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	GrandTotal  decimal.Decimal
}

// Subtotal is the sum of unit price x quantity over all lines.
func Subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return DeliveryFlatFee
}

func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate)
}

// GrandTotalFor applies the delivery and tax rules to a bare subtotal.
func GrandTotalFor(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(DeliveryFee(subtotal)).Add(Tax(subtotal))
}

// GrandTotal prices a ledger. An empty ledger has nothing to deliver and
// totals zero.
func GrandTotal(items []domain.CartItem) decimal.Decimal {
	return Price(items).GrandTotal
}

// Price computes all four figures for items.
func Price(items []domain.CartItem) Breakdown {
	if len(items) == 0 {
		return Breakdown{
			Subtotal:    decimal.Zero,
			DeliveryFee: decimal.Zero,
			Tax:         decimal.Zero,
			GrandTotal:  decimal.Zero,
		}
	}

	subtotal := Subtotal(items)
	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: DeliveryFee(subtotal),
		Tax:         Tax(subtotal),
		GrandTotal:  GrandTotalFor(subtotal),
	}
}
