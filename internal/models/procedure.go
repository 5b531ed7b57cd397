package models

import "time"

// ProcedureType tags the procedural step a document evidences.
type ProcedureType string

const (
	ProcBPlanAufstellung  ProcedureType = "BPLAN_AUFSTELLUNG"
	ProcBPlanFruehzeitig  ProcedureType = "BPLAN_FRUEHZEITIG_3_1"
	ProcBPlanAuslegung    ProcedureType = "BPLAN_AUSLEGUNG_3_2"
	ProcBPlanSatzung      ProcedureType = "BPLAN_SATZUNG"
	ProcBPlanOther        ProcedureType = "BPLAN_OTHER"
	ProcPermitVorbescheid ProcedureType = "PERMIT_BAUVORBESCHEID"
	ProcPermitGenehmigung ProcedureType = "PERMIT_BAUGENEHMIGUNG"
	ProcPermit36          ProcedureType = "PERMIT_36_EINVERNEHMEN"
	ProcPermitOther       ProcedureType = "PERMIT_OTHER"
	ProcUnknown           ProcedureType = "UNKNOWN"
)

// LegalBasis is the BauGB paragraph a procedure rests on.
type LegalBasis string

const (
	Basis35      LegalBasis = "§35"
	Basis34      LegalBasis = "§34"
	Basis36      LegalBasis = "§36"
	BasisUnknown LegalBasis = "unknown"
)

// ProjectComponents tags what the project consists of.
type ProjectComponents string

const (
	ComponentsPVBESS   ProjectComponents = "PV+BESS"
	ComponentsWindBESS ProjectComponents = "WIND+BESS"
	ComponentsBESSOnly ProjectComponents = "BESS_ONLY"
	ComponentsUnclear  ProjectComponents = "OTHER/UNCLEAR"
)

// Procedure is one classified, persisted planning or permit step. Container
// items never become procedures; they are stored as audit-only sources.
type Procedure struct {
	ID                string            `json:"id" badgerhold:"key"`
	Title             string            `json:"title"`
	TitleNorm         string            `json:"title_norm"`
	MunicipalityKey   string            `json:"municipality_key" badgerhold:"index"`
	State             string            `json:"state"`
	County            string            `json:"county"`
	DiscoverySource   DiscoverySource   `json:"discovery_source"`
	ProcedureType     ProcedureType     `json:"procedure_type"`
	LegalBasis        LegalBasis        `json:"legal_basis"`
	ProjectComponents ProjectComponents `json:"project_components"`
	AmbiguityFlag     bool              `json:"ambiguity_flag"`
	ReviewRecommended bool              `json:"review_recommended"`
	Confidence        float64           `json:"confidence"`
	BESSScore         float64           `json:"bess_score"`
	GridScore         float64           `json:"grid_score"`
	DecisionDate      *time.Time        `json:"decision_date,omitempty"`
	SiteLocationRaw   string            `json:"site_location_raw,omitempty"`
	DeveloperCompany  string            `json:"developer_company,omitempty"`
	CapacityMW        float64           `json:"capacity_mw,omitempty"`
	CapacityMWh       float64           `json:"capacity_mwh,omitempty"`
	AreaHectares      float64           `json:"area_hectares,omitempty"`
	EvidenceSnippets  []string          `json:"evidence_snippets,omitempty"`
	ProjectID         string            `json:"project_id,omitempty" badgerhold:"index"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
