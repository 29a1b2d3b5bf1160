package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	appHandle = nil
	t.Cleanup(func() { appHandle = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version: dev")
}

func TestAuditCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "purchases.csv")
	require.NoError(t, os.WriteFile(input, []byte("Item,Vendor,Price_Paid,Standard_Price\nChairs,Family First Ltd,15000,2000\nPens,Office Co,10,10\n"), 0o644))
	report := filepath.Join(dir, "final_audit_report.csv")

	out, err := run(t, "audit", input, "--sensitivity", "200", "--csv", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Flagged: 1")
	assert.FileExists(t, report)
}

func TestAuditCommandRejectsBadSensitivity(t *testing.T) {
	_, err := run(t, "audit", "missing.csv", "--sensitivity", "abc")
	assert.ErrorContains(t, err, "--sensitivity")
}

func TestAuditCommandRejectsOutOfRangeSensitivity(t *testing.T) {
	_, err := run(t, "audit", "missing.csv", "--sensitivity", "1e20000000")
	assert.ErrorContains(t, err, "--sensitivity")
}

func TestRootCommandDescribesTool(t *testing.T) {
	assert.Contains(t, rootCmd.Long, "standard")
	assert.Contains(t, rootCmd.Long, "batch")
	assert.Contains(t, rootCmd.PersistentFlags().Lookup("config").Usage, "PRICEAUDIT_")
	assert.Contains(t, rootCmd.PersistentFlags().Lookup("log-level").Usage, "disabled")
}

func TestAuditCommandRequiresFile(t *testing.T) {
	_, err := run(t, "audit")
	assert.Error(t, err)
}
