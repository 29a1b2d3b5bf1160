package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/alerting"
	"procurement-audit/internal/audit"
	"procurement-audit/internal/ingest"
	"procurement-audit/internal/metrics"
	"procurement-audit/internal/session"
)

// Options carry the alerting policy.
type Options struct {
	AlertMinRiskRows int
	AlertMaxListed   int
	AlertTimeout     time.Duration
}

// Service runs uploads and audits against session state and owns their
// logging and metrics.
type Service struct {
	sessions *session.Store
	notifier alerting.Notifier
	metrics  *metrics.Registry
	logger   zerolog.Logger
	opts     Options
}

// New constructs the audit service. sessions, notifier and reg may be nil.
func New(sessions *session.Store, notifier alerting.Notifier, reg *metrics.Registry, opts Options, logger zerolog.Logger) *Service {
	if opts.AlertMinRiskRows <= 0 {
		opts.AlertMinRiskRows = 1
	}
	if opts.AlertTimeout <= 0 {
		opts.AlertTimeout = 10 * time.Second
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Service{
		sessions: sessions,
		notifier: notifier,
		metrics:  reg,
		logger:   logger.With().Str("component", "service").Logger(),
		opts:     opts,
	}
}

// Sessions exposes the backing store.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// Ingest parses an uploaded file.
func (s *Service) Ingest(fileName string, r io.Reader) (audit.Dataset, error) {
	ds, err := ingest.Read(fileName, r)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Str("file", fileName).Msg("ingestion failed")
		return audit.Dataset{}, fmt.Errorf("could not read %s: %w", fileName, err)
	}

	s.metrics.Uploads.WithLabelValues("ok").Inc()
	s.logger.Info().Str("file", fileName).
		Int("rows", ds.Len()).
		Strs("columns", ds.Columns).
		Msg("file ingested")
	return ds, nil
}

// RunAudit evaluates a dataset, records metrics and dispatches a risk alert
// when configured. An empty result is returned without error.
func (s *Service) RunAudit(ctx context.Context, fileName string, ds audit.Dataset, mapping audit.ColumnMapping, sensitivity decimal.Decimal) (audit.Result, error) {
	res, err := audit.Evaluate(ds, mapping, sensitivity)
	if err != nil {
		outcome := metrics.OutcomeFailed
		var mapErr *audit.ColumnMappingError
		if errors.As(err, &mapErr) {
			outcome = metrics.OutcomeMappingError
		}
		s.metrics.AuditRuns.WithLabelValues(outcome).Inc()
		s.logger.Warn().Err(err).Str("file", fileName).Msg("audit rejected")
		return audit.Result{}, err
	}

	excluded := ds.Len() - res.Total
	s.metrics.RowsAudited.Add(float64(res.Total))
	s.metrics.RowsExcluded.Add(float64(excluded))
	s.metrics.RiskRows.Add(float64(res.RiskCount))

	if res.Empty() {
		s.metrics.AuditRuns.WithLabelValues(metrics.OutcomeEmpty).Inc()
		s.logger.Warn().Str("file", fileName).
			Int("rows", ds.Len()).
			Str("price_paid", mapping.PricePaid).
			Str("standard_price", mapping.StandardPrice).
			Msg("no valid numeric rows")
		return res, nil
	}

	s.metrics.AuditRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	s.logger.Info().Str("file", fileName).
		Int("total", res.Total).
		Int("excluded", excluded).
		Int("risk_count", res.RiskCount).
		Str("max_variance", res.MaxVariance.Decimal.String()).
		Str("sensitivity", sensitivity.String()).
		Msg("audit completed")

	s.alert(ctx, fileName, res)
	return res, nil
}

func (s *Service) alert(ctx context.Context, fileName string, res audit.Result) {
	if s.notifier == nil || res.RiskCount < s.opts.AlertMinRiskRows {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.AlertTimeout)
	defer cancel()

	note := alerting.NewNotification(fileName, res, s.opts.AlertMaxListed)
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.metrics.Alerts.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("file", fileName).Msg("failed to dispatch alert")
		return
	}
	s.metrics.Alerts.WithLabelValues("sent").Inc()
}
