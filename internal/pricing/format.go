package pricing

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the storefront's currency sign.
const DefaultSymbol = "₦"

// Formatter renders amounts for display: rounded to whole units, half away
// from zero, with digit grouping.
type Formatter struct {
	Symbol  string
	printer *message.Printer
}

func NewFormatter(symbol string) Formatter {
	return Formatter{
		Symbol:  symbol,
		printer: message.NewPrinter(language.English),
	}
}

func (f Formatter) Format(d decimal.Decimal) string {
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	rounded := d.Round(0)
	if rounded.Abs().GreaterThan(maxGrouped) {
		return f.Symbol + rounded.String()
	}
	return f.Symbol + p.Sprintf("%d", rounded.IntPart())
}

// maxGrouped is the largest magnitude IntPart can return without wrapping.
var maxGrouped = decimal.NewFromInt(math.MaxInt64)

// Display holds the formatted figures of a Breakdown.
type Display struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	Tax         string `json:"tax"`
	GrandTotal  string `json:"grand_total"`
}

func (f Formatter) Breakdown(b Breakdown) Display {
	return Display{
		Subtotal:    f.Format(b.Subtotal),
		DeliveryFee: f.Format(b.DeliveryFee),
		Tax:         f.Format(b.Tax),
		GrandTotal:  f.Format(b.GrandTotal),
	}
}
