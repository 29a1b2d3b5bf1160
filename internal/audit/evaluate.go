package audit

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var hundred = decimal.NewFromInt(100)

// Evaluate normalises every record through the mapping and flags rows whose
// paid price exceeds sensitivity percent of the standard price. Rows with an
// unparseable price or a zero standard price are dropped; survivors keep
// their input order. The only error is a *ColumnMappingError.
func Evaluate(ds Dataset, mapping ColumnMapping, sensitivity decimal.Decimal) (Result, error) {
	if err := mapping.Validate(ds.Columns); err != nil {
		return Result{}, err
	}

	// Validate guarantees every lookup succeeds.
	itemIdx, _ := ds.ColumnIndex(mapping.Item)
	vendorIdx, _ := ds.ColumnIndex(mapping.Vendor)
	paidIdx, _ := ds.ColumnIndex(mapping.PricePaid)
	stdIdx, _ := ds.ColumnIndex(mapping.StandardPrice)

	result := Result{
		Records:     make([]AuditedRecord, 0, len(ds.Records)),
		Sensitivity: sensitivity,
		Mapping:     mapping,
	}

	for _, raw := range ds.Records {
		paid, ok := ParsePrice(raw.Value(paidIdx))
		if !ok {
			continue
		}
		standard, ok := ParsePrice(raw.Value(stdIdx))
		if !ok || standard.IsZero() {
			continue
		}

		diff := paid.Div(standard).Mul(hundred)
		status := StatusClear
		if diff.GreaterThan(sensitivity) {
			status = StatusRisk
		}

		result.Records = append(result.Records, AuditedRecord{
			Item:          stringify(raw.Value(itemIdx)),
			Vendor:        stringify(raw.Value(vendorIdx)),
			PricePaid:     paid,
			StandardPrice: standard,
			PriceDiffPct:  diff,
			Status:        status,
		})
	}

	summarise(&result)
	return result, nil
}

func summarise(r *Result) {
	r.Total = len(r.Records)
	r.RiskCount = 0
	r.MaxVariance = decimal.NullDecimal{}
	for _, rec := range r.Records {
		if rec.IsRisk() {
			r.RiskCount++
		}
		if !r.MaxVariance.Valid || rec.PriceDiffPct.GreaterThan(r.MaxVariance.Decimal) {
			r.MaxVariance = decimal.NullDecimal{Decimal: rec.PriceDiffPct, Valid: true}
		}
	}
}

// ParsePrice converts an untyped cell into a finite decimal. Text may carry
// surrounding whitespace; blanks, NaN, infinities and non-numeric text are
// rejected.
func ParsePrice(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return bounded(x)
	case string:
		return parsePriceText(x)
	case json.Number:
		return parsePriceText(string(x))
	case []byte:
		return parsePriceText(string(x))
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case bool:
		return decimal.Decimal{}, false
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0), true
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(n), true
}

func parsePriceText(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	// Text must also be a finite float64: huge exponents are rejected and
	// underflow reads as zero.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if f == 0 {
		return decimal.Zero, true
	}
	return bounded(d)
}

// maxPriceExponent keeps Div cost bounded; float64 spans roughly 1e-324..1e308.
const maxPriceExponent = 400

func bounded(d decimal.Decimal) (decimal.Decimal, bool) {
	if exp := d.Exponent(); exp >= -maxPriceExponent && exp <= maxPriceExponent {
		return d, true
	}
	return fromFloat(d.InexactFloat64())
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
