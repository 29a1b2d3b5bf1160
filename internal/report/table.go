package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"procurement-audit/internal/audit"
)

// EmptyMessage is shown when an audit ran but kept no rows.
const EmptyMessage = "No valid numeric data found in the selected price columns. Please check your file."

// Summary formats the aggregate line shown under tables and in logs.
func Summary(res audit.Result) string {
	maxVar := "n/a"
	if res.MaxVariance.Valid {
		maxVar = FormatPercent(res.MaxVariance.Decimal)
	}
	return fmt.Sprintf("Audited: %d  Flagged: %d  Max variance: %s", res.Total, res.RiskCount, maxVar)
}

// PrintTable writes the audited rows and a summary footer to w.
func PrintTable(w io.Writer, res audit.Result) error {
	if res.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Item", "Vendor", "Price Paid", "Standard Price", "Diff %", "Status")
	for _, rec := range res.Records {
		row := []string{
			sanitizeInline(rec.Item),
			sanitizeInline(rec.Vendor),
			FormatMoney(rec.PricePaid),
			FormatMoney(rec.StandardPrice),
			FormatPercent(rec.PriceDiffPct),
			rec.Status.Label(),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s (sensitivity %s%%)\n", Summary(res), res.Sensitivity.String())
	return err
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
