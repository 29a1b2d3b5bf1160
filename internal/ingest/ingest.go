package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"procurement-audit/internal/audit"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than csv/xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile indicates the upload has no header row.
	ErrEmptyFile = errors.New("file contains no header row")
)

// Format identifies a supported upload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a reader from the file name extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Read parses an uploaded file; name is only used to detect the format.
func Read(name string, r io.Reader) (audit.Dataset, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return audit.Dataset{}, err
	}

	switch format {
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadFile opens and parses a file from disk.
func ReadFile(path string) (audit.Dataset, error) {
	if _, err := DetectFormat(path); err != nil {
		return audit.Dataset{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return audit.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return Read(path, file)
}

// buildDataset turns raw text rows into a dataset. The first non-blank row is
// the header; blank rows are skipped and empty cells become nil.
func buildDataset(rows [][]string) (audit.Dataset, error) {
	start := -1
	for i, row := range rows {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return audit.Dataset{}, ErrEmptyFile
	}

	columns := normaliseHeader(rows[start])
	ds := audit.Dataset{Columns: columns, Records: make([]audit.RawRecord, 0, len(rows)-start-1)}

	for i, row := range rows[start+1:] {
		if blankRow(row) {
			continue
		}
		if len(row) > len(columns) && !blankRow(row[len(columns):]) {
			return audit.Dataset{}, fmt.Errorf("row %d has %d fields, header has %d", start+i+2, len(row), len(columns))
		}

		record := make(audit.RawRecord, len(columns))
		for j := range columns {
			if j < len(row) && row[j] != "" {
				record[j] = row[j]
			}
		}
		ds.Records = append(ds.Records, record)
	}

	return ds, nil
}

// normaliseHeader names blank header cells "Unnamed: N" and suffixes
// duplicates with ".1", ".2" so every column can be selected unambiguously.
func normaliseHeader(header []string) []string {
	columns := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int, len(header))

	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}

		candidate := name
		for used[candidate] {
			suffix[name]++
			candidate = name + "." + strconv.Itoa(suffix[name])
		}
		used[candidate] = true
		columns[i] = candidate
	}
	return columns
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
