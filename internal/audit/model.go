package audit

import (
	"github.com/shopspring/decimal"
)

// RawRecord holds the cell values of one uploaded row, positionally aligned
// with Dataset.Columns. Values are untyped: text, a Go numeric type, or nil
// for a blank cell.
type RawRecord []any

// Value returns the cell at idx, or nil when the record is shorter than the header.
func (r RawRecord) Value(idx int) any {
	if idx < 0 || idx >= len(r) {
		return nil
	}
	return r[idx]
}

// Dataset is a parsed upload: a header row plus its records.
type Dataset struct {
	Columns []string    `json:"columns"`
	Records []RawRecord `json:"-"`
}

// ColumnIndex returns the position of the named column.
func (d Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range d.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Len reports the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Status classifies an audited row.
type Status string

const (
	StatusClear Status = "CLEAR"
	StatusRisk  Status = "RISK"
)

// Label is the human readable form shown on the dashboard.
func (s Status) Label() string {
	if s == StatusRisk {
		return "Corruption risk"
	}
	return "Clear"
}

// AuditedRecord is one surviving row after normalisation and classification.
type AuditedRecord struct {
	Item          string          `json:"item"`
	Vendor        string          `json:"vendor"`
	PricePaid     decimal.Decimal `json:"price_paid"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	PriceDiffPct  decimal.Decimal `json:"price_diff_pct"`
	Status        Status          `json:"status"`
}

// IsRisk reports whether the row was flagged.
func (r AuditedRecord) IsRisk() bool {
	return r.Status == StatusRisk
}

// Result aggregates one audit run.
type Result struct {
	Records     []AuditedRecord     `json:"records"`
	Total       int                 `json:"total"`
	RiskCount   int                 `json:"risk_count"`
	MaxVariance decimal.NullDecimal `json:"max_variance"`
	Sensitivity decimal.Decimal     `json:"sensitivity"`
	Mapping     ColumnMapping       `json:"mapping"`
}

// Empty reports whether no row survived filtering.
func (r Result) Empty() bool {
	return r.Total == 0
}

// RiskRecords returns the flagged rows in input order.
func (r Result) RiskRecords() []AuditedRecord {
	out := make([]AuditedRecord, 0, r.RiskCount)
	for _, rec := range r.Records {
		if rec.IsRisk() {
			out = append(out, rec)
		}
	}
	return out
}
