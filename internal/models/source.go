package models

import "time"

// Source is a forensic record of one retrieval. A source with an empty
// ProcedureID is an audit-only record: a container issue or an item the
// classifier rejected. Those are kept so every fetched URL stays traceable.
type Source struct {
	ID              string          `json:"id" badgerhold:"key"`
	ProcedureID     string          `json:"procedure_id,omitempty" badgerhold:"index"`
	SourceURL       string          `json:"source_url"`
	RetrievedAt     time.Time       `json:"retrieved_at"`
	HTTPStatus      int             `json:"http_status"`
	ETag            string          `json:"etag,omitempty"`
	LastModified    string          `json:"last_modified,omitempty"`
	DiscoverySource DiscoverySource `json:"discovery_source"`
	DiscoveryPath   string          `json:"discovery_path,omitempty"`
}

// AuditOnly reports whether this source evidences no persisted procedure.
func (s *Source) AuditOnly() bool {
	return s.ProcedureID == ""
}
