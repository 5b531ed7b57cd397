package storage

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// ProjectStorage persists project entities and their procedure links.
type ProjectStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewProjectStorage(db *BadgerDB, logger arbor.ILogger) *ProjectStorage {
	return &ProjectStorage{db: db, logger: logger}
}

func (s *ProjectStorage) Upsert(p *models.ProjectEntity) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.Store().Upsert(p.ID, p); err != nil {
		return fmt.Errorf("failed to upsert project %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProjectStorage) Get(id string) (*models.ProjectEntity, error) {
	var p models.ProjectEntity
	err := s.db.Store().Get(id, &p)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return &p, nil
}

func (s *ProjectStorage) ByMunicipality(key string) ([]*models.ProjectEntity, error) {
	var out []*models.ProjectEntity
	err := s.db.Store().Find(&out, badgerhold.Where("MunicipalityKey").Eq(key).Index("MunicipalityKey"))
	if err != nil {
		return nil, fmt.Errorf("failed to find projects for municipality %s: %w", key, err)
	}
	return out, nil
}

// All returns every project, for exports.
func (s *ProjectStorage) All() ([]*models.ProjectEntity, error) {
	var out []*models.ProjectEntity
	if err := s.db.Store().Find(&out, nil); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

func (s *ProjectStorage) UpsertLink(l *models.ProjectLink) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(l.ID, l); err != nil {
		return fmt.Errorf("failed to upsert project link %s: %w", l.ID, err)
	}
	return nil
}

// CommitResolution writes a resolved procedure, its project link, and the
// project rollup in one transaction. A crash mid-resolution cannot leave a
// procedure pointing at a project that was never written.
func (s *ProjectStorage) CommitResolution(proc *models.Procedure, link *models.ProjectLink, project *models.ProjectEntity) error {
	now := time.Now().UTC()
	if proc.CreatedAt.IsZero() {
		proc.CreatedAt = now
	}
	proc.UpdatedAt = now
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	store := s.db.Store()
	err := store.Badger().Update(func(tx *badger.Txn) error {
		if err := store.TxUpsert(tx, proc.ID, proc); err != nil {
			return err
		}
		if err := store.TxUpsert(tx, link.ID, link); err != nil {
			return err
		}
		return store.TxUpsert(tx, project.ID, project)
	})
	if err != nil {
		return fmt.Errorf("failed to commit resolution for procedure %s: %w", proc.ID, err)
	}
	return nil
}

func (s *ProjectStorage) LinksByProject(projectID string) ([]*models.ProjectLink, error) {
	var out []*models.ProjectLink
	err := s.db.Store().Find(&out, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find links for project %s: %w", projectID, err)
	}
	return out, nil
}
