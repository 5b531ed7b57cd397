package models

import (
	"encoding/json"
	"fmt"
)

// JobType identifies the kind of work a queue message carries.
type JobType string

const (
	JobTypeMunicipality       JobType = "Municipality"
	JobTypeDiscoveryRIS       JobType = "DiscoveryRIS"
	JobTypeDiscoveryGazette   JobType = "DiscoveryGazette"
	JobTypeDiscoveryMunicipal JobType = "DiscoveryMunicipal"
	JobTypeDiscoveryPortal    JobType = "DiscoveryPortal"
	JobTypeExtraction         JobType = "Extraction"
)

// CrawlMode selects the fast/deep tradeoff for thresholds, page counts, and
// PDF size guards.
type CrawlMode string

const (
	ModeFast CrawlMode = "fast"
	ModeDeep CrawlMode = "deep"
)

// ParseCrawlMode validates a mode string, defaulting to fast.
func ParseCrawlMode(s string) (CrawlMode, error) {
	switch s {
	case "", string(ModeFast):
		return ModeFast, nil
	case string(ModeDeep):
		return ModeDeep, nil
	}
	return ModeFast, fmt.Errorf("invalid crawl mode %q", s)
}

// JobPayload is the wire format of a queue message. A municipality job fans
// into one discovery job per source; discovery jobs enqueue extraction jobs
// for candidates that pass the prefilter.
type JobPayload struct {
	Type             JobType   `json:"type"`
	RunID            string    `json:"run_id"`
	MunicipalityKey  string    `json:"municipality_key"`
	MunicipalityName string    `json:"municipality_name"`
	Entrypoint       string    `json:"entrypoint,omitempty"`
	Mode             CrawlMode `json:"mode"`
	CandidateID      string    `json:"candidate_id,omitempty"`
}

// ToJSON serializes the payload for the queue.
func (p *JobPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// JobPayloadFromJSON decodes a queue message body.
func JobPayloadFromJSON(data []byte) (*JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	if p.Mode == "" {
		p.Mode = ModeFast
	}
	return &p, nil
}
