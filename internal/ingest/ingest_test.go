package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"procurement-audit/internal/audit"
)

const sampleCSV = `Item,Vendor,Price Paid,Market Price
Laptops,Tech Corp,50000,50000
Pencils,Global Supplies,10,10

Office Chairs,Family First Ltd,15000,2000
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Item", "Vendor", "Price Paid", "Market Price"}, ds.Columns)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, audit.RawRecord{"Office Chairs", "Family First Ltd", "15000", "2000"}, ds.Records[2])
}

func TestReadCSVStripsBOM(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("\xEF\xBB\xBFItem,Price\nPen,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "Item", ds.Columns[0])
}

func TestReadCSVBlankCellsAreNil(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b,c\n1,,3\n4\n"))
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Nil(t, ds.Records[0][1])
	assert.Equal(t, audit.RawRecord{"4", nil, nil}, ds.Records[1])
}

func TestReadCSVRejectsExtraFields(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadCSVTrailingEmptyFieldsAllowed(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b\n1,2,,\n"))
	require.NoError(t, err)
	assert.Equal(t, audit.RawRecord{"1", "2"}, ds.Records[0])
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestNormaliseHeader(t *testing.T) {
	got := normaliseHeader([]string{"Price", " Price ", "", "Price", "Price.1"})
	assert.Equal(t, []string{"Price", "Price.1", "Unnamed: 2", "Price.2", "Price.1.1"}, got)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("report.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = DetectFormat("legacy.xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("notes.txt", strings.NewReader("a,b"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadXLSXFirstSheet(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()

	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]any{"Item", "Vendor", "Paid", "Standard"}))
	require.NoError(t, book.SetSheetRow("Sheet1", "A2", &[]any{"Laptops", "Tech Corp", 50000, 50000}))
	require.NoError(t, book.SetSheetRow("Sheet1", "A3", &[]any{"Office Chairs", "Family First Ltd", 15000.5, 2000}))
	_, err := book.NewSheet("Ignored")
	require.NoError(t, err)
	require.NoError(t, book.SetSheetRow("Ignored", "A1", &[]any{"Other"}))

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Read("upload.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"Item", "Vendor", "Paid", "Standard"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "50000", ds.Records[0][2])
	assert.Equal(t, "15000.5", ds.Records[1][2])
}

func TestReadXLSXCorrupt(t *testing.T) {
	_, err := Read("broken.xlsx", strings.NewReader("not a zip archive"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}

func TestReadFileThenEvaluate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purchases.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	ds, err := ReadFile(path)
	require.NoError(t, err)

	res, err := audit.Evaluate(ds, audit.GuessMapping(ds.Columns), decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.RiskCount)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
