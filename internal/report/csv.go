package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"procurement-audit/internal/audit"
)

// DefaultFileName is the download name of the audited data.
const DefaultFileName = "final_audit_report.csv"

// CSVHeader is the export header; there is no index column.
var CSVHeader = []string{"Item", "Vendor", "Price_Paid", "Standard_Price", "Price_Diff_%", "Status"}

// WriteCSV serialises audited rows in input order.
func WriteCSV(w io.Writer, records []audit.AuditedRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.Item,
			rec.Vendor,
			rec.PricePaid.String(),
			rec.StandardPrice.String(),
			rec.PriceDiffPct.String(),
			string(rec.Status),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the export to path, creating parent directories.
func WriteCSVFile(path string, records []audit.AuditedRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, records)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
