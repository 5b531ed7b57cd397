package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// ProcedureStorage persists classified procedures. Procedure IDs are
// deterministic, so re-crawling the same item overwrites instead of
// duplicating.
type ProcedureStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewProcedureStorage(db *BadgerDB, logger arbor.ILogger) *ProcedureStorage {
	return &ProcedureStorage{db: db, logger: logger}
}

func (s *ProcedureStorage) Upsert(p *models.Procedure) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.Store().Upsert(p.ID, p); err != nil {
		return fmt.Errorf("failed to upsert procedure %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProcedureStorage) UpsertBatch(procs []*models.Procedure) error {
	var firstErr error
	for _, p := range procs {
		if err := s.Upsert(p); err != nil {
			s.logger.Warn().Err(err).Str("procedure_id", p.ID).Msg("batch procedure upsert failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *ProcedureStorage) Get(id string) (*models.Procedure, error) {
	var p models.Procedure
	err := s.db.Store().Get(id, &p)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get procedure %s: %w", id, err)
	}
	return &p, nil
}

func (s *ProcedureStorage) ByProject(projectID string) ([]*models.Procedure, error) {
	var out []*models.Procedure
	err := s.db.Store().Find(&out, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find procedures for project %s: %w", projectID, err)
	}
	return out, nil
}

func (s *ProcedureStorage) ByMunicipality(key string) ([]*models.Procedure, error) {
	var out []*models.Procedure
	err := s.db.Store().Find(&out, badgerhold.Where("MunicipalityKey").Eq(key).Index("MunicipalityKey"))
	if err != nil {
		return nil, fmt.Errorf("failed to find procedures for municipality %s: %w", key, err)
	}
	return out, nil
}

// All returns every procedure, for exports.
func (s *ProcedureStorage) All() ([]*models.Procedure, error) {
	var out []*models.Procedure
	if err := s.db.Store().Find(&out, nil); err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	return out, nil
}
