package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// MaxPrice is the largest unit price a cart line can carry.
var MaxPrice = decimal.New(1, 12)

const (
	maxPriceExponent = 12
	minPriceExponent = -12
	maxPriceDigits   = 24
)

// PriceInRange reports whether d is small enough to price, format and store.
// The exponent and digit count are checked before any comparison, since
// comparing rescales and 1e50000000 would have to be expanded in full.
func PriceInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxPriceExponent || exp < minPriceExponent || d.NumDigits() > maxPriceDigits {
		return false
	}
	return !d.Abs().GreaterThan(MaxPrice)
}

// PriceFromFloat clamps a float price into the admissible range.
func PriceFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return ClampPrice(decimal.NewFromFloat(f))
}

// ClampPrice returns zero for negative or out-of-range prices.
func ClampPrice(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() || !PriceInRange(d) {
		return decimal.Zero
	}
	return d
}

// PriceFrom reads a price out of a loosely typed JSON value. Numbers and
// numeric strings are accepted; ok is false when the value is missing, not
// numeric or out of range, in which case the returned price is zero.
func PriceFrom(v gjson.Result) (price decimal.Decimal, ok bool) {
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimSpace(v.Str)
	default:
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, true
	}
	if !PriceInRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

// QuantityFrom reads a quantity out of a loosely typed JSON value. Fractions
// are floored. ok is false when the value is missing or not numeric; the
// returned quantity may still be < 1 and callers decide what that means.
func QuantityFrom(v gjson.Result) (qty int, ok bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), true
}

// IDFrom reads an identifier. Numeric ids from legacy payloads are kept in
// their textual form.
func IDFrom(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		id := strings.TrimSpace(v.Str)
		return id, id != ""
	case gjson.Number:
		return v.Raw, true
	default:
		return "", false
	}
}

// TextFrom returns the string value of v, or "" when v is not a string.
func TextFrom(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

// InputFrom reads an add-to-cart candidate from a JSON object using the same
// coercion rules as stored carts. A missing or non-numeric price leaves
// Price invalid.
func InputFrom(v gjson.Result) ItemInput {
	id, _ := IDFrom(v.Get("id"))
	in := ItemInput{
		ID:       id,
		Name:     TextFrom(v.Get("name")),
		ImageRef: TextFrom(v.Get("image")),
		Notes:    TextFrom(v.Get("notes")),
	}
	if price, ok := PriceFrom(v.Get("price")); ok {
		in.Price = decimal.NewNullDecimal(price)
	}
	return in
}
