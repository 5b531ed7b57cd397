package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// SourceStorage persists forensic retrieval records. Audit-only sources
// (empty ProcedureID) are kept like any other, so rejected items stay
// traceable.
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) *SourceStorage {
	return &SourceStorage{db: db, logger: logger}
}

func (s *SourceStorage) Upsert(src *models.Source) error {
	if src.RetrievedAt.IsZero() {
		src.RetrievedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(src.ID, src); err != nil {
		return fmt.Errorf("failed to upsert source %s: %w", src.ID, err)
	}
	return nil
}

func (s *SourceStorage) UpsertBatch(sources []*models.Source) error {
	var firstErr error
	for _, src := range sources {
		if err := s.Upsert(src); err != nil {
			s.logger.Warn().Err(err).Str("source_id", src.ID).Msg("batch source upsert failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *SourceStorage) Get(id string) (*models.Source, error) {
	var src models.Source
	err := s.db.Store().Get(id, &src)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source %s: %w", id, err)
	}
	return &src, nil
}

func (s *SourceStorage) ByProcedure(procedureID string) ([]*models.Source, error) {
	var out []*models.Source
	err := s.db.Store().Find(&out, badgerhold.Where("ProcedureID").Eq(procedureID).Index("ProcedureID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find sources for procedure %s: %w", procedureID, err)
	}
	return out, nil
}

// All returns every source record, audit-only ones included, for exports.
func (s *SourceStorage) All() ([]*models.Source, error) {
	var out []*models.Source
	if err := s.db.Store().Find(&out, nil); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return out, nil
}
