package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-audit/internal/audit"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	store := NewStore(Options{TTL: ttl, DefaultSensitivity: decimal.NewFromInt(200), Now: clock.Now})
	return store, clock
}

func sampleDataset() audit.Dataset {
	return audit.Dataset{
		Columns: []string{"Item", "Vendor", "Price_Paid", "Standard_Price"},
		Records: []audit.RawRecord{{"Pens", "Acme", "30", "10"}},
	}
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	rec := store.Create()
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.HasDataset())
	assert.True(t, rec.Sensitivity.Equal(decimal.NewFromInt(200)))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = store.Get("unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceDatasetDropsPreviousResult(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	rec := store.Create()

	_, err := store.ReplaceResult(rec.ID, nil, audit.Result{})
	assert.ErrorIs(t, err, ErrNoDataset)

	ds := sampleDataset()
	rec, err = store.ReplaceDataset(rec.ID, "first.csv", ds)
	require.NoError(t, err)
	assert.Equal(t, "Price_Paid", rec.Mapping.PricePaid)

	res, err := audit.Evaluate(ds, rec.Mapping, decimal.NewFromInt(250))
	require.NoError(t, err)
	rec, err = store.ReplaceResult(rec.ID, rec.Dataset, res)
	require.NoError(t, err)
	require.NotNil(t, rec.Result)
	assert.True(t, rec.Sensitivity.Equal(decimal.NewFromInt(250)))

	rec, err = store.ReplaceDataset(rec.ID, "second.csv", ds)
	require.NoError(t, err)
	assert.Nil(t, rec.Result)
	assert.Equal(t, "second.csv", rec.FileName)
}

func TestReplaceResultRejectsReplacedDataset(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	rec := store.Create()

	first, err := store.ReplaceDataset(rec.ID, "first.csv", sampleDataset())
	require.NoError(t, err)
	res, err := audit.Evaluate(*first.Dataset, first.Mapping, decimal.NewFromInt(200))
	require.NoError(t, err)

	// another tab uploads while the audit of first.csv is running
	_, err = store.ReplaceDataset(rec.ID, "second.csv", sampleDataset())
	require.NoError(t, err)

	_, err = store.ReplaceResult(rec.ID, first.Dataset, res)
	assert.ErrorIs(t, err, ErrStaleDataset)

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "second.csv", got.FileName)
	assert.Nil(t, got.Result)
}

func TestReset(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	rec := store.Create()
	_, err := store.ReplaceDataset(rec.ID, "a.csv", sampleDataset())
	require.NoError(t, err)

	reset, err := store.Reset(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, reset.ID)
	assert.False(t, reset.HasDataset())
	assert.Empty(t, reset.FileName)
	assert.Equal(t, 1, store.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store, clock := newTestStore(30 * time.Minute)
	idle := store.Create()
	clock.Advance(20 * time.Minute)
	active := store.Create()
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(active.ID)
	assert.NoError(t, err)
}

func TestExpiredSessionNotReturnedBeforeSweep(t *testing.T) {
	store, clock := newTestStore(time.Minute)
	rec := store.Create()
	clock.Advance(2 * time.Minute)

	_, err := store.ReplaceDataset(rec.ID, "late.csv", sampleDataset())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	store, clock := newTestStore(0)
	store.Create()
	clock.Advance(365 * 24 * time.Hour)

	assert.Zero(t, store.Sweep())
	assert.Equal(t, 1, store.Len())
}
