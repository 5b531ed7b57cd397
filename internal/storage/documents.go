package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bessradar/bessradar/internal/models"
)

// DocumentStorage persists document metadata in badger and raw bytes in a
// content-addressed directory tree: basePath/docs/<sha[:2]>/<sha>.<ext>.
type DocumentStorage struct {
	db       *BadgerDB
	logger   arbor.ILogger
	basePath string
}

func NewDocumentStorage(db *BadgerDB, basePath string, logger arbor.ILogger) *DocumentStorage {
	return &DocumentStorage{db: db, logger: logger, basePath: basePath}
}

func (s *DocumentStorage) Upsert(d *models.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(d.ID, d); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", d.ID, err)
	}
	return nil
}

func (s *DocumentStorage) Get(id string) (*models.Document, error) {
	var d models.Document
	err := s.db.Store().Get(id, &d)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &d, nil
}

// ByContentSHA returns the document with the given content hash, or nil. The
// hash is the document identity: the same bytes from two URLs are one
// document.
func (s *DocumentStorage) ByContentSHA(sha string) (*models.Document, error) {
	var out []*models.Document
	err := s.db.Store().Find(&out, badgerhold.Where("ContentSHA256").Eq(sha).Index("ContentSHA256"))
	if err != nil {
		return nil, fmt.Errorf("failed to find document by sha %s: %w", sha, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (s *DocumentStorage) BySource(sourceID string) ([]*models.Document, error) {
	var out []*models.Document
	err := s.db.Store().Find(&out, badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find documents for source %s: %w", sourceID, err)
	}
	return out, nil
}

// SaveBlob writes document bytes under the content-addressed tree and returns
// the storage path. Writing the same content twice is a no-op.
func (s *DocumentStorage) SaveBlob(sha, ext string, data []byte) (string, error) {
	if len(sha) < 2 {
		return "", fmt.Errorf("invalid content hash %q", sha)
	}
	dir := filepath.Join(s.basePath, "docs", sha[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	path := filepath.Join(dir, sha+"."+ext)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", sha, err)
	}
	return path, nil
}

// AddExtraction appends one provenance record for an extracted field.
func (s *DocumentStorage) AddExtraction(e *models.Extraction) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Store().Upsert(e.ID, e); err != nil {
		return fmt.Errorf("failed to upsert extraction %s: %w", e.ID, err)
	}
	return nil
}

func (s *DocumentStorage) ExtractionsByDocument(documentID string) ([]*models.Extraction, error) {
	var out []*models.Extraction
	err := s.db.Store().Find(&out, badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID"))
	if err != nil {
		return nil, fmt.Errorf("failed to find extractions for document %s: %w", documentID, err)
	}
	return out, nil
}
