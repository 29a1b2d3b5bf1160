package report

import (
	"github.com/shopspring/decimal"
)

// FormatPercent renders a percentage with two decimals.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// FormatMoney renders a price with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
