package domain

import "github.com/shopspring/decimal"

// CartItem is one line of the ledger. Quantity is always >= 1 and UnitPrice is
// never negative once an item has been admitted.
type CartItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ImageRef  string
	Notes     string
}

// LineTotal is UnitPrice x Quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Equal compares items by value; prices are compared numerically.
func (i CartItem) Equal(o CartItem) bool {
	return i.ID == o.ID &&
		i.Name == o.Name &&
		i.UnitPrice.Equal(o.UnitPrice) &&
		i.Quantity == o.Quantity &&
		i.ImageRef == o.ImageRef &&
		i.Notes == o.Notes
}

// ItemInput is a candidate for the ledger's add operation. Price is optional:
// an invalid NullDecimal means the caller did not supply one.
type ItemInput struct {
	ID       string
	Name     string
	Price    decimal.NullDecimal
	ImageRef string
	Notes    string
}

// NewItemInput builds an input with a price taken from a float. NaN, Inf and
// negative values are coerced to zero.
func NewItemInput(id, name string, price float64) ItemInput {
	return ItemInput{
		ID:    id,
		Name:  name,
		Price: decimal.NewNullDecimal(PriceFromFloat(price)),
	}
}
