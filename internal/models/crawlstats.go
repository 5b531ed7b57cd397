package models

import "time"

// SourceStatus is the per-(run, municipality, source) outcome.
type SourceStatus string

const (
	StatusSuccess      SourceStatus = "SUCCESS"
	StatusErrorSSL     SourceStatus = "ERROR_SSL"
	StatusErrorNetwork SourceStatus = "ERROR_NETWORK"
	StatusErrorOther   SourceStatus = "ERROR_OTHER"
	StatusNotRun       SourceStatus = "NOT_RUN"
)

// ReasonCode is the structured outcome of a discovery attempt.
type ReasonCode string

const (
	ReasonFound          ReasonCode = "FOUND"
	ReasonNoSeedURL      ReasonCode = "NO_SEED_URL"
	ReasonAllURLs404     ReasonCode = "ALL_URLS_404"
	ReasonSSLBlocked     ReasonCode = "SSL_BLOCKED"
	ReasonNoMarkersFound ReasonCode = "NO_MARKERS_FOUND"
	ReasonFoundButEmpty  ReasonCode = "FOUND_BUT_EMPTY"
)

// DiscoveryMethod says how the adapter located its entry URL.
type DiscoveryMethod string

const (
	MethodSiteDriven      DiscoveryMethod = "site_driven"
	MethodPatternGuessing DiscoveryMethod = "pattern_guessing"
)

// DiscoveryDiagnostics is emitted by every adapter, success or failure.
// Adapters never throw silently: every exception ends up classified here.
type DiscoveryDiagnostics struct {
	Method        DiscoveryMethod   `json:"method"`
	AttemptedURLs []string          `json:"attempted_urls,omitempty"`
	FailedURLs    map[string]string `json:"failed_urls,omitempty"`
	ReasonCode    ReasonCode        `json:"reason_code"`
}

// JobTimings records per-phase milliseconds for one job.
type JobTimings struct {
	FetchHTMLMs  float64 `json:"fetch_html_ms"`
	FetchPDFMs   float64 `json:"fetch_pdf_ms"`
	ExtractPDFMs float64 `json:"extract_pdf_ms"`
	ClassifyMs   float64 `json:"classify_ms"`
	DBWriteMs    float64 `json:"db_write_ms"`
}

// CrawlCounts are the per-job counters rolled into crawl stats.
type CrawlCounts struct {
	PagesFetched      int `json:"pages_fetched"`
	PDFsDownloaded    int `json:"pdfs_downloaded"`
	PDFsSkipped       int `json:"pdfs_skipped"`
	CandidatesFound   int `json:"candidates_found"`
	ProceduresSaved   int `json:"procedures_saved"`
	ProceduresSkipped int `json:"procedures_skipped"`
}

// CrawlStats is one diagnostics record per (run, municipality, source type).
type CrawlStats struct {
	ID              string                `json:"id" badgerhold:"key"`
	RunID           string                `json:"run_id" badgerhold:"index"`
	MunicipalityKey string                `json:"municipality_key" badgerhold:"index"`
	SourceType      DiscoverySource       `json:"source_type"`
	Counts          CrawlCounts           `json:"counts"`
	Timings         JobTimings            `json:"timings"`
	SourceStatus    SourceStatus          `json:"source_status"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	Diagnostics     *DiscoveryDiagnostics `json:"discovery_diagnostics,omitempty"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}
