package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/alerting"
	"procurement-audit/internal/audit"
	"procurement-audit/internal/config"
	"procurement-audit/internal/metrics"
	"procurement-audit/internal/scheduler"
	"procurement-audit/internal/service"
	"procurement-audit/internal/session"
	"procurement-audit/internal/version"
	"procurement-audit/internal/web"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger)
}

func (a *App) newService(store *session.Store, reg *metrics.Registry, notifier alerting.Notifier) *service.Service {
	return service.New(store, notifier, reg, service.Options{
		AlertMinRiskRows: a.Config.Alerting.MinRiskRows,
		AlertMaxListed:   a.Config.Alerting.MaxListed,
		AlertTimeout:     a.Config.Alerting.Timeout,
	}, a.Logger)
}

// Serve runs the dashboard and the session janitor until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	store := session.NewStore(session.Options{
		TTL:                a.Config.Session.TTL,
		DefaultSensitivity: a.Config.DefaultSensitivity(),
	})

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Info().Msg("risk alerting disabled")
	}
	svc := a.newService(store, reg, notifier)

	janitor := scheduler.New(scheduler.Options{
		Name:     "session_janitor",
		Interval: a.Config.Session.SweepInterval,
	}, a.Logger)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		_ = janitor.Run(ctx, svc.SweepSessions)
	}()

	a.Logger.Info().Str("addr", a.Config.Server.Addr).Str("version", version.Version).Msg("starting audit dashboard")
	err := web.New(a.Config, svc, reg, a.Logger).Run(ctx)

	cancel()
	<-janitorDone

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("dashboard terminated with error")
		return err
	}

	a.Logger.Info().Msg("audit dashboard stopped")
	return nil
}

// AuditOptions configure a one-shot file audit.
type AuditOptions struct {
	File        string
	Mapping     audit.ColumnMapping
	Sensitivity decimal.Decimal
	CSVPath     string
	PNGPath     string
	Notify      bool
}

// BatchOptions configure auditing every supported file in a directory.
type BatchOptions struct {
	Dir         string
	OutDir      string
	Mapping     audit.ColumnMapping
	Sensitivity decimal.Decimal
	DryRun      bool
}

func (a *App) resolveSensitivity(v decimal.Decimal) (decimal.Decimal, error) {
	if v.IsZero() {
		return a.Config.DefaultSensitivity(), nil
	}
	if v.IsNegative() {
		return decimal.Decimal{}, errors.New("sensitivity must be greater than zero")
	}
	return v, nil
}
