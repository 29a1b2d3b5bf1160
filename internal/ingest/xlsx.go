package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"procurement-audit/internal/audit"
)

// ReadXLSX parses the first worksheet of a workbook. Cells are read raw so
// number formats such as thousands separators do not leak into prices.
func ReadXLSX(r io.Reader) (audit.Dataset, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return audit.Dataset{}, fmt.Errorf("read workbook: %w", ErrEmptyFile)
	}

	rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	ds, err := buildDataset(rows)
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return ds, nil
}
