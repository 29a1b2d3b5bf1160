package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/audit"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session: not found")
	// ErrNoDataset is returned when an audit is stored before any upload.
	ErrNoDataset = errors.New("session: no dataset uploaded")
	// ErrStaleDataset is returned when a result was computed on a dataset that
	// has since been replaced by another upload.
	ErrStaleDataset = errors.New("session: dataset changed during audit")
)

// Record is the complete state of one dashboard session: the most recent
// upload and the most recent audit of it. Each upload or run replaces the
// relevant fields wholesale.
type Record struct {
	ID          string
	FileName    string
	Dataset     *audit.Dataset
	Mapping     audit.ColumnMapping
	Sensitivity decimal.Decimal
	Result      *audit.Result
	UpdatedAt   time.Time
}

// HasDataset reports whether a file has been uploaded.
func (r Record) HasDataset() bool {
	return r.Dataset != nil
}

// Options tune the store.
type Options struct {
	TTL                time.Duration
	DefaultSensitivity decimal.Decimal
	Now                func() time.Time
}

// Store keeps session records in memory, keyed by a random id.
type Store struct {
	mu       sync.RWMutex
	records  map[string]*Record
	ttl      time.Duration
	defaults decimal.Decimal
	now      func() time.Time
}

// NewStore constructs an empty store.
func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		records:  make(map[string]*Record),
		ttl:      opts.TTL,
		defaults: opts.DefaultSensitivity,
		now:      now,
	}
}

// Create starts a fresh session.
func (s *Store) Create() Record {
	rec := &Record{
		ID:          uuid.NewString(),
		Sensitivity: s.defaults,
		UpdatedAt:   s.now(),
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	return *rec
}

// Get returns a snapshot of the session and refreshes its idle timer.
func (s *Store) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.UpdatedAt = s.now()
	return *rec, nil
}

// ReplaceDataset swaps in a new upload, discarding the previous upload and
// its result. The mapping is reset to a guess for the new header.
func (s *Store) ReplaceDataset(id, fileName string, ds audit.Dataset) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.FileName = fileName
	rec.Dataset = &ds
	rec.Mapping = audit.GuessMapping(ds.Columns)
	rec.Result = nil
	rec.UpdatedAt = s.now()
	return *rec, nil
}

// ReplaceResult records the outcome of an audit run together with the
// inputs that produced it. from is the Dataset pointer of the snapshot the
// result was computed on; it must still be the session's current upload.
func (s *Store) ReplaceResult(id string, from *audit.Dataset, result audit.Result) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Dataset == nil {
		return Record{}, ErrNoDataset
	}
	if rec.Dataset != from {
		return Record{}, ErrStaleDataset
	}
	rec.Mapping = result.Mapping
	rec.Sensitivity = result.Sensitivity
	rec.Result = &result
	rec.UpdatedAt = s.now()
	return *rec, nil
}

// Reset clears the session back to its initial state, keeping the id.
func (s *Store) Reset(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	*rec = Record{ID: rec.ID, Sensitivity: s.defaults, UpdatedAt: s.now()}
	return *rec, nil
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. A zero TTL disables expiry.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) lookup(id string) (*Record, bool) {
	if id == "" {
		return nil, false
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && rec.UpdatedAt.Before(s.now().Add(-s.ttl)) {
		delete(s.records, id)
		return nil, false
	}
	return rec, true
}
