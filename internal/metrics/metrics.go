package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Audit run outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeEmpty        = "empty"
	OutcomeMappingError = "mapping_error"
	OutcomeFailed       = "failed"
)

// Registry holds the dashboard's collectors on a private registry.
type Registry struct {
	reg          *prometheus.Registry
	Uploads      *prometheus.CounterVec
	AuditRuns    *prometheus.CounterVec
	RowsAudited  prometheus.Counter
	RowsExcluded prometheus.Counter
	RiskRows     prometheus.Counter
	Sessions     prometheus.Gauge
	Alerts       *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "priceaudit_uploads_total",
		Help: "File uploads by result.",
	}, []string{"result"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "priceaudit_audit_runs_total",
		Help: "Audit runs by outcome.",
	}, []string{"outcome"})
	audited := prometheus.NewCounter(prometheus.CounterOpts{Name: "priceaudit_rows_audited_total"})
	excluded := prometheus.NewCounter(prometheus.CounterOpts{Name: "priceaudit_rows_excluded_total"})
	risk := prometheus.NewCounter(prometheus.CounterOpts{Name: "priceaudit_risk_rows_total"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{Name: "priceaudit_sessions_active"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "priceaudit_alerts_total",
		Help: "Risk notifications by result.",
	}, []string{"result"})

	r.MustRegister(uploads, runs, audited, excluded, risk, sessions, alerts)
	return &Registry{
		reg:          r,
		Uploads:      uploads,
		AuditRuns:    runs,
		RowsAudited:  audited,
		RowsExcluded: excluded,
		RiskRows:     risk,
		Sessions:     sessions,
		Alerts:       alerts,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
