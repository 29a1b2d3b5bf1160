package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-audit/internal/alerting"
	"procurement-audit/internal/audit"
	"procurement-audit/internal/ingest"
	"procurement-audit/internal/metrics"
	"procurement-audit/internal/session"
)

const purchasesCSV = `Item,Vendor,Price_Paid,Standard_Price
Laptops,Tech Corp,50000,50000
Pencils,Global Supplies,10,10
Office Chairs,Family First Ltd,15000,2000
Pencils,Global Supplies,10,10
Laptops,Tech Corp,50000,50000
`

var defaultMapping = audit.ColumnMapping{
	Item:          "Item",
	Vendor:        "Vendor",
	PricePaid:     "Price_Paid",
	StandardPrice: "Standard_Price",
}

type recordingNotifier struct {
	notes []alerting.Notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	n.notes = append(n.notes, note)
	return n.err
}

func newTestService(notifier alerting.Notifier) (*Service, *metrics.Registry) {
	reg := metrics.NewRegistry()
	store := session.NewStore(session.Options{TTL: time.Hour, DefaultSensitivity: decimal.NewFromInt(200)})
	return New(store, notifier, reg, Options{AlertMaxListed: 3}, zerolog.Nop()), reg
}

func TestRunAuditSendsAlertOnRisk(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, reg := newTestService(notifier)

	ds, err := svc.Ingest("purchases.csv", strings.NewReader(purchasesCSV))
	require.NoError(t, err)

	res, err := svc.RunAudit(context.Background(), "purchases.csv", ds, defaultMapping, decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.RiskCount)
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, "purchases.csv", notifier.notes[0].FileName)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.AuditRuns.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Alerts.WithLabelValues("sent")))
}

func TestRunAuditNoAlertWithoutRisk(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _ := newTestService(notifier)
	ds, err := ingest.ReadCSV(strings.NewReader(purchasesCSV))
	require.NoError(t, err)

	_, err = svc.RunAudit(context.Background(), "p.csv", ds, defaultMapping, decimal.NewFromInt(800))
	require.NoError(t, err)
	assert.Empty(t, notifier.notes)
}

func TestRunAuditAlertFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	svc, reg := newTestService(notifier)
	ds, err := ingest.ReadCSV(strings.NewReader(purchasesCSV))
	require.NoError(t, err)

	res, err := svc.RunAudit(context.Background(), "p.csv", ds, defaultMapping, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RiskCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Alerts.WithLabelValues("failed")))
}

func TestRunAuditMappingError(t *testing.T) {
	svc, reg := newTestService(nil)
	ds, err := ingest.ReadCSV(strings.NewReader(purchasesCSV))
	require.NoError(t, err)

	mapping := defaultMapping
	mapping.PricePaid = "Amount"
	_, err = svc.RunAudit(context.Background(), "p.csv", ds, mapping, decimal.NewFromInt(200))

	var mapErr *audit.ColumnMappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, audit.RolePricePaid, mapErr.Role)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.AuditRuns.WithLabelValues(metrics.OutcomeMappingError)))
}

func TestRunAuditEmptyIsWarningNotError(t *testing.T) {
	svc, reg := newTestService(nil)
	ds, err := ingest.ReadCSV(strings.NewReader("Item,Vendor,Price_Paid,Standard_Price\nA,B,n/a,0\n"))
	require.NoError(t, err)

	res, err := svc.RunAudit(context.Background(), "p.csv", ds, defaultMapping, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.AuditRuns.WithLabelValues(metrics.OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RowsExcluded))
}

func TestSessionFlow(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	rec, err := svc.OpenSession("")
	require.NoError(t, err)

	_, err = svc.Audit(ctx, rec.ID, defaultMapping, decimal.NewFromInt(200))
	assert.ErrorIs(t, err, session.ErrNoDataset)

	rec, err = svc.Upload(rec.ID, "purchases.csv", strings.NewReader(purchasesCSV))
	require.NoError(t, err)
	assert.Equal(t, defaultMapping, rec.Mapping)

	rec, err = svc.Audit(ctx, rec.ID, defaultMapping, decimal.NewFromInt(200))
	require.NoError(t, err)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 1, rec.Result.RiskCount)

	// failed upload keeps the previous dataset and result
	_, err = svc.Upload(rec.ID, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ingest.ErrUnsupportedFormat)

	// failed audit keeps the previous result
	bad := defaultMapping
	bad.Item = "Missing"
	_, err = svc.Audit(ctx, rec.ID, bad, decimal.NewFromInt(200))
	require.Error(t, err)

	again, err := svc.OpenSession(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "purchases.csv", again.FileName)
	require.NotNil(t, again.Result)
	assert.Equal(t, 5, again.Result.Total)

	reset, err := svc.Reset(rec.ID)
	require.NoError(t, err)
	assert.False(t, reset.HasDataset())
}

func TestSweepSessions(t *testing.T) {
	reg := metrics.NewRegistry()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := session.NewStore(session.Options{TTL: time.Minute, Now: func() time.Time { return now }})
	svc := New(store, nil, reg, Options{}, zerolog.Nop())

	_, err := svc.OpenSession("")
	require.NoError(t, err)
	now = now.Add(time.Hour)

	require.NoError(t, svc.SweepSessions(context.Background(), now))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.Sessions))
}
