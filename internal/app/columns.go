package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"procurement-audit/internal/audit"
	"procurement-audit/internal/ingest"
)

// Columns prints the header of a file and the role each column would be
// pre-selected for.
func (a *App) Columns(path string) error {
	ds, err := ingest.ReadFile(path)
	if err != nil {
		return err
	}

	guess := audit.GuessMapping(ds.Columns)
	roles := make(map[string][]string, len(ds.Columns))
	for _, role := range audit.Roles() {
		col := guess.Column(role)
		roles[col] = append(roles[col], string(role))
	}

	table := tablewriter.NewWriter(a.Out)
	table.Header("#", "Column", "Guessed role")
	for i, col := range ds.Columns {
		role := "-"
		if r := roles[col]; len(r) > 0 {
			role = strings.Join(r, ", ")
		}
		if err := table.Append([]string{strconv.Itoa(i + 1), col, role}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.Out, "\n%d data rows\n", ds.Len())
	return err
}
