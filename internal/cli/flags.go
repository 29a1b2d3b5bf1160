package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"procurement-audit/internal/audit"
)

// auditFlags are shared by the commands that run the engine.
type auditFlags struct {
	item        string
	vendor      string
	paid        string
	standard    string
	sensitivity string
}

func (f *auditFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.item, "item", "", "Column holding the item description (guessed when empty)")
	fs.StringVar(&f.vendor, "vendor", "", "Column holding the vendor name (guessed when empty)")
	fs.StringVar(&f.paid, "paid", "", "Column holding the price paid (guessed when empty)")
	fs.StringVar(&f.standard, "standard", "", "Column holding the standard price (guessed when empty)")
	fs.StringVar(&f.sensitivity, "sensitivity", "", "Flag rows whose price exceeds this percent of standard (defaults to config)")
}

func (f *auditFlags) mapping() audit.ColumnMapping {
	return audit.ColumnMapping{
		Item:          f.item,
		Vendor:        f.vendor,
		PricePaid:     f.paid,
		StandardPrice: f.standard,
	}
}

func (f *auditFlags) parseSensitivity() (decimal.Decimal, error) {
	if f.sensitivity == "" {
		return decimal.Zero, nil
	}
	v, ok := audit.ParsePrice(f.sensitivity)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("invalid --sensitivity value %q", f.sensitivity)
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("--sensitivity must be greater than zero")
	}
	return v, nil
}
