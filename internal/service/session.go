package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"procurement-audit/internal/audit"
	"procurement-audit/internal/session"
)

var errNoStore = errors.New("session store not configured")

// OpenSession returns the session for id, creating a new one when id is
// unknown or expired.
func (s *Service) OpenSession(id string) (session.Record, error) {
	if s.sessions == nil {
		return session.Record{}, errNoStore
	}
	rec, err := s.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		rec = s.sessions.Create()
		s.metrics.Sessions.Set(float64(s.sessions.Len()))
		return rec, nil
	}
	return rec, err
}

// Upload ingests a file into the session. On failure the session keeps its
// previous dataset and result.
func (s *Service) Upload(sessionID, fileName string, r io.Reader) (session.Record, error) {
	if s.sessions == nil {
		return session.Record{}, errNoStore
	}
	ds, err := s.Ingest(fileName, r)
	if err != nil {
		return session.Record{}, err
	}
	return s.sessions.ReplaceDataset(sessionID, fileName, ds)
}

// Audit runs the session's dataset through the engine and stores the result.
// On error the session's previous result is left in place.
func (s *Service) Audit(ctx context.Context, sessionID string, mapping audit.ColumnMapping, sensitivity decimal.Decimal) (session.Record, error) {
	if s.sessions == nil {
		return session.Record{}, errNoStore
	}
	rec, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.Record{}, err
	}
	if !rec.HasDataset() {
		return rec, session.ErrNoDataset
	}

	res, err := s.RunAudit(ctx, rec.FileName, *rec.Dataset, mapping, sensitivity)
	if err != nil {
		return rec, err
	}
	return s.sessions.ReplaceResult(sessionID, rec.Dataset, res)
}

// Reset clears the session.
func (s *Service) Reset(sessionID string) (session.Record, error) {
	if s.sessions == nil {
		return session.Record{}, errNoStore
	}
	return s.sessions.Reset(sessionID)
}

// SweepSessions evicts idle sessions; it is the janitor's tick function.
func (s *Service) SweepSessions(_ context.Context, at time.Time) error {
	if s.sessions == nil {
		return nil
	}
	removed := s.sessions.Sweep()
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
	if removed > 0 {
		s.logger.Info().Time("at", at).Int("removed", removed).Msg("expired sessions evicted")
	}
	return nil
}
