package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"procurement-audit/internal/alerting"
	"procurement-audit/internal/audit"
	"procurement-audit/internal/report"
	"procurement-audit/internal/service"
)

// Audit evaluates one file, prints the table and writes the requested exports.
func (a *App) Audit(ctx context.Context, opts AuditOptions) (audit.Result, error) {
	if opts.File == "" {
		return audit.Result{}, errors.New("a file to audit must be provided")
	}

	sensitivity, err := a.resolveSensitivity(opts.Sensitivity)
	if err != nil {
		return audit.Result{}, err
	}

	var notifier alerting.Notifier
	if opts.Notify {
		notifier = a.newNotifier()
		if notifier == nil {
			return audit.Result{}, errors.New("--notify requires alerting.enabled and a configured channel")
		}
	}
	svc := a.newService(nil, nil, notifier)

	res, err := a.auditFile(ctx, svc, opts.File, opts.Mapping, sensitivity)
	if err != nil {
		return audit.Result{}, err
	}

	if err := report.PrintTable(a.Out, res); err != nil {
		return res, err
	}
	if res.Empty() {
		return res, nil
	}

	if opts.CSVPath != "" {
		if err := report.WriteCSVFile(opts.CSVPath, res.Records); err != nil {
			return res, fmt.Errorf("write csv: %w", err)
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("csv report written")
	}

	if opts.PNGPath != "" {
		chartOpts := report.ChartOptions{Width: a.Config.Export.ChartWidth, Height: a.Config.Export.ChartHeight}
		if err := report.WriteChartFile(opts.PNGPath, res, chartOpts); err != nil {
			return res, fmt.Errorf("write chart: %w", err)
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("chart written")
	}

	return res, nil
}

// auditFile reads path and audits it, filling unset mapping roles from the
// header guess.
func (a *App) auditFile(ctx context.Context, svc *service.Service, path string, mapping audit.ColumnMapping, sensitivity decimal.Decimal) (audit.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return audit.Result{}, err
	}
	defer f.Close()

	name := filepath.Base(path)
	ds, err := svc.Ingest(name, f)
	if err != nil {
		return audit.Result{}, err
	}

	resolved := audit.GuessMapping(ds.Columns).Override(mapping)
	return svc.RunAudit(ctx, name, ds, resolved, sensitivity)
}
