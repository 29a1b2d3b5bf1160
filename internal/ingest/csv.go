package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"procurement-audit/internal/audit"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses comma separated text with a header row.
func ReadCSV(r io.Reader) (audit.Dataset, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("read csv: %w", err)
	}

	ds, err := buildDataset(rows)
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("read csv: %w", err)
	}
	return ds, nil
}
