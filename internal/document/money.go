package document

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money formats an amount as "$1,234.50", with a leading minus for negatives.
func Money(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", rounded.InexactFloat64())
}
