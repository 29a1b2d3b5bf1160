package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"procurement-audit/internal/ingest"
	"procurement-audit/internal/report"
)

// Batch audits every CSV or Excel file in a directory, writing one report per
// file into OutDir. Failures are logged and counted; processing continues.
func (a *App) Batch(ctx context.Context, opts BatchOptions) error {
	if opts.Dir == "" {
		return errors.New("an input directory must be provided")
	}
	if opts.OutDir == "" && !opts.DryRun {
		return errors.New("an output directory must be provided unless running dry")
	}

	sensitivity, err := a.resolveSensitivity(opts.Sensitivity)
	if err != nil {
		return err
	}

	files, err := listAuditable(opts.Dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no csv or xlsx files found in %s", opts.Dir)
	}

	if opts.DryRun {
		a.Logger.Warn().Msg("batch dry-run: reports will not be written")
	}

	svc := a.newService(nil, nil, nil)

	processed := 0
	failed := 0
	for _, path := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := a.auditFile(ctx, svc, path, opts.Mapping, sensitivity)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("file", path).Msg("batch audit failed")
			fmt.Fprintf(a.Out, "%s: FAILED %v\n", filepath.Base(path), err)
			continue
		}
		processed++

		fmt.Fprintf(a.Out, "%s: %s\n", filepath.Base(path), report.Summary(res))
		if opts.DryRun || res.Empty() {
			continue
		}

		out := filepath.Join(opts.OutDir, reportName(path))
		if err := report.WriteCSVFile(out, res.Records); err != nil {
			failed++
			a.Logger.Error().Err(err).Str("path", out).Msg("write batch report")
		}
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("batch audit finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed, check the logs", failed, len(files))
	}
	return nil
}

func listAuditable(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := ingest.DetectFormat(e.Name()); err != nil {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// reportName keeps the source extension so a.csv and a.xlsx do not share a report.
func reportName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + strings.ToLower(strings.TrimPrefix(ext, ".")) + "_audit.csv"
}
