package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/models"
)

// Manager bundles the typed stores over one database connection. It is the
// single object handed to workers and the resolver.
type Manager struct {
	DB         *BadgerDB
	Candidates *CandidateStorage
	Procedures *ProcedureStorage
	Projects   *ProjectStorage
	Sources    *SourceStorage
	Documents  *DocumentStorage
	Stats      *StatsStorage
}

// NewManager opens the database and wires every store.
func NewManager(cfg common.StorageConfig, logger arbor.ILogger) (*Manager, error) {
	db, err := NewBadgerDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		DB:         db,
		Candidates: NewCandidateStorage(db, logger),
		Procedures: NewProcedureStorage(db, logger),
		Projects:   NewProjectStorage(db, logger),
		Sources:    NewSourceStorage(db, logger),
		Documents:  NewDocumentStorage(db, cfg.BasePath, logger),
		Stats:      NewStatsStorage(db, logger),
	}, nil
}

func (m *Manager) Close() error {
	return m.DB.Close()
}

// The methods below let the manager serve as the resolver's project store.

func (m *Manager) ProjectsByMunicipality(key string) ([]*models.ProjectEntity, error) {
	return m.Projects.ByMunicipality(key)
}

func (m *Manager) ProceduresByProject(projectID string) ([]*models.Procedure, error) {
	return m.Procedures.ByProject(projectID)
}

func (m *Manager) UpsertProject(p *models.ProjectEntity) error {
	return m.Projects.Upsert(p)
}

func (m *Manager) UpsertProjectLink(l *models.ProjectLink) error {
	return m.Projects.UpsertLink(l)
}

func (m *Manager) UpsertProcedure(p *models.Procedure) error {
	return m.Procedures.Upsert(p)
}

func (m *Manager) CommitResolution(proc *models.Procedure, link *models.ProjectLink, project *models.ProjectEntity) error {
	return m.Projects.CommitResolution(proc, link, project)
}
