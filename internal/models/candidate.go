package models

import "time"

// DiscoverySource identifies which adapter produced an item.
type DiscoverySource string

const (
	SourceRIS              DiscoverySource = "RIS"
	SourceAmtsblatt        DiscoverySource = "AMTSBLATT"
	SourceMunicipalWebsite DiscoverySource = "MUNICIPAL_WEBSITE"
	SourceLandkreis        DiscoverySource = "LANDKREIS"
	SourceDiPlanung        DiscoverySource = "DIPLANUNG"
	SourceXPlanung         DiscoverySource = "XPLANUNG"
)

// CandidateStatus tracks the extraction lifecycle of a candidate.
type CandidateStatus string

const (
	CandidatePending    CandidateStatus = "PENDING"
	CandidateExtracting CandidateStatus = "EXTRACTING"
	CandidateDone       CandidateStatus = "DONE"
	CandidateSkipped    CandidateStatus = "SKIPPED"
	CandidateError      CandidateStatus = "ERROR"
)

// Candidate is a lightweight discovery result. Created by discovery workers,
// consumed at most once by extraction. A candidate is eligible for extraction
// iff PrefilterScore meets the source-aware threshold for the run's mode.
type Candidate struct {
	ID              string          `json:"id" badgerhold:"key"`
	RunID           string          `json:"run_id" badgerhold:"index"`
	MunicipalityKey string          `json:"municipality_key" badgerhold:"index"`
	DiscoverySource DiscoverySource `json:"discovery_source"`
	DiscoveryPath   string          `json:"discovery_path,omitempty"`
	Title           string          `json:"title"`
	URL             string          `json:"url"`
	Date            *time.Time      `json:"date,omitempty"`
	DocURLs         []string        `json:"doc_urls,omitempty"`
	PrefilterScore  float64         `json:"prefilter_score"`
	Status          CandidateStatus `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
