package models

import "time"

// Document is a content-addressed fetched blob. ContentSHA256 is the identity:
// the same bytes are the same document regardless of which URL served them.
type Document struct {
	ID            string    `json:"id" badgerhold:"key"`
	SourceID      string    `json:"source_id" badgerhold:"index"`
	ContentSHA256 string    `json:"content_sha256" badgerhold:"index"`
	Bytes         int64     `json:"bytes"`
	MIME          string    `json:"mime"`
	StoragePath   string    `json:"storage_path"`
	HasTextLayer  bool      `json:"has_text_layer"`
	OCRNeeded     bool      `json:"ocr_needed,omitempty"`
	PageMap       []int     `json:"page_map,omitempty"` // cumulative text offset at each page boundary
	ExtractedText string    `json:"extracted_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Extraction is one append-only extracted field value with its provenance.
type Extraction struct {
	ID              string    `json:"id" badgerhold:"key"`
	DocumentID      string    `json:"document_id" badgerhold:"index"`
	Field           string    `json:"field"`
	Value           string    `json:"value"`
	Method          string    `json:"method"`
	EvidenceSnippet string    `json:"evidence_snippet,omitempty"`
	Page            int       `json:"page,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
