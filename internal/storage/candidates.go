package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// CandidateStorage persists discovery candidates and their status lifecycle.
type CandidateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewCandidateStorage(db *BadgerDB, logger arbor.ILogger) *CandidateStorage {
	return &CandidateStorage{db: db, logger: logger}
}

// Upsert writes one candidate, stamping UpdatedAt.
func (s *CandidateStorage) Upsert(c *models.Candidate) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := s.db.Store().Upsert(c.ID, c); err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.ID, err)
	}
	return nil
}

// UpsertBatch writes a slice of candidates in one pass. Errors are collected,
// not short-circuited, so one bad record does not drop the rest of the batch.
func (s *CandidateStorage) UpsertBatch(candidates []*models.Candidate) error {
	var firstErr error
	for _, c := range candidates {
		if err := s.Upsert(c); err != nil {
			s.logger.Warn().Err(err).Str("candidate_id", c.ID).Msg("batch candidate upsert failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Get returns one candidate or nil when absent.
func (s *CandidateStorage) Get(id string) (*models.Candidate, error) {
	var c models.Candidate
	err := s.db.Store().Get(id, &c)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}
	return &c, nil
}

// ByRun returns all candidates of a run.
func (s *CandidateStorage) ByRun(runID string) ([]*models.Candidate, error) {
	var out []*models.Candidate
	err := s.db.Store().Find(&out, badgerhold.Where("RunID").Eq(runID).Index("RunID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates for run %s: %w", runID, err)
	}
	return out, nil
}

// ByStatus returns the candidates of a run in one lifecycle state.
func (s *CandidateStorage) ByStatus(runID string, status models.CandidateStatus) ([]*models.Candidate, error) {
	var out []*models.Candidate
	err := s.db.Store().Find(&out,
		badgerhold.Where("RunID").Eq(runID).Index("RunID").And("Status").Eq(status))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s candidates for run %s: %w", status, runID, err)
	}
	return out, nil
}

// UpdateStatus moves a candidate through its lifecycle. Unknown IDs are an
// error: status transitions must never create records.
func (s *CandidateStorage) UpdateStatus(id string, status models.CandidateStatus) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("candidate %s not found", id)
	}
	c.Status = status
	return s.Upsert(c)
}
