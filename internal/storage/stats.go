package storage

import (
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// StatsStorage persists per-(run, municipality, source) crawl diagnostics.
type StatsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewStatsStorage(db *BadgerDB, logger arbor.ILogger) *StatsStorage {
	return &StatsStorage{db: db, logger: logger}
}

func (s *StatsStorage) Upsert(st *models.CrawlStats) error {
	if err := s.db.Store().Upsert(st.ID, st); err != nil {
		return fmt.Errorf("failed to upsert crawl stats %s: %w", st.ID, err)
	}
	return nil
}

func (s *StatsStorage) Get(id string) (*models.CrawlStats, error) {
	var st models.CrawlStats
	err := s.db.Store().Get(id, &st)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl stats %s: %w", id, err)
	}
	return &st, nil
}

func (s *StatsStorage) ByRun(runID string) ([]*models.CrawlStats, error) {
	var out []*models.CrawlStats
	err := s.db.Store().Find(&out, badgerhold.Where("RunID").Eq(runID).Index("RunID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find crawl stats for run %s: %w", runID, err)
	}
	return out, nil
}

func (s *StatsStorage) ByMunicipality(runID, municipalityKey string) ([]*models.CrawlStats, error) {
	var out []*models.CrawlStats
	err := s.db.Store().Find(&out,
		badgerhold.Where("RunID").Eq(runID).Index("RunID").And("MunicipalityKey").Eq(municipalityKey))
	if err != nil {
		return nil, fmt.Errorf("failed to find crawl stats for municipality %s: %w", municipalityKey, err)
	}
	return out, nil
}
