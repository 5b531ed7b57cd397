package models

import "time"

// MaturityStage is the ladder a project advances along. Order matters:
// maturityRank defines precedence, low to high.
type MaturityStage string

const (
	StageDiscovered        MaturityStage = "DISCOVERED"
	StageBPlanAufstellung  MaturityStage = "BPLAN_AUFSTELLUNG"
	StageBPlanAuslegung    MaturityStage = "BPLAN_AUSLEGUNG"
	StageBPlanSatzung      MaturityStage = "BPLAN_SATZUNG"
	StagePermit36          MaturityStage = "PERMIT_36"
	StagePermitVorbescheid MaturityStage = "PERMIT_BAUVORBESCHEID"
	StagePermitGenehmigung MaturityStage = "PERMIT_BAUGENEHMIGUNG"
)

var maturityRank = map[MaturityStage]int{
	StageDiscovered:        0,
	StageBPlanAufstellung:  1,
	StageBPlanAuslegung:    2,
	StageBPlanSatzung:      3,
	StagePermit36:          4,
	StagePermitVorbescheid: 5,
	StagePermitGenehmigung: 6,
}

// Rank returns the ladder position of a stage; unknown stages rank lowest.
func (m MaturityStage) Rank() int {
	return maturityRank[m]
}

// MaturityOf maps a procedure type onto the ladder.
func MaturityOf(pt ProcedureType) MaturityStage {
	switch pt {
	case ProcBPlanAufstellung, ProcBPlanFruehzeitig:
		return StageBPlanAufstellung
	case ProcBPlanAuslegung:
		return StageBPlanAuslegung
	case ProcBPlanSatzung:
		return StageBPlanSatzung
	case ProcPermit36:
		return StagePermit36
	case ProcPermitVorbescheid:
		return StagePermitVorbescheid
	case ProcPermitGenehmigung:
		return StagePermitGenehmigung
	}
	return StageDiscovered
}

// MatchLevel records how a procedure was linked to its project.
type MatchLevel string

const (
	MatchParcel   MatchLevel = "PARCEL"
	MatchPlan     MatchLevel = "PLAN"
	MatchDevTitle MatchLevel = "DEV_TITLE"
	MatchTitleSig MatchLevel = "TITLE_SIG"
	Match36New    MatchLevel = "§36_NEW"
	MatchNew      MatchLevel = "NEW_PROJECT"
)

// ProjectEntity is the canonical consolidation of one real-world project
// across procedures from any source. Rollup fields are recomputed from the
// set of linked procedures on every link, so they stay idempotent.
type ProjectEntity struct {
	ID                   string            `json:"id" badgerhold:"key"`
	MunicipalityKey      string            `json:"municipality_key" badgerhold:"index"`
	State                string            `json:"state"`
	County               string            `json:"county"`
	CanonicalProjectName string            `json:"canonical_project_name"`
	PlanToken            string            `json:"plan_token,omitempty"`
	ParcelToken          string            `json:"parcel_token,omitempty"`
	DeveloperNorm        string            `json:"developer_norm,omitempty"`
	TitleSignature       string            `json:"title_signature,omitempty"`
	MaturityStage        MaturityStage     `json:"maturity_stage"`
	LegalBasisBest       LegalBasis        `json:"legal_basis_best"`
	ComponentsBest       ProjectComponents `json:"project_components_best"`
	DeveloperBest        string            `json:"developer_company_best,omitempty"`
	SiteLocationBest     string            `json:"site_location_best,omitempty"`
	CapacityMWBest       float64           `json:"capacity_mw_best,omitempty"`
	CapacityMWhBest      float64           `json:"capacity_mwh_best,omitempty"`
	AreaHectaresBest     float64           `json:"area_hectares_best,omitempty"`
	FirstSeenDate        *time.Time        `json:"first_seen_date,omitempty"`
	LastSeenDate         *time.Time        `json:"last_seen_date,omitempty"`
	MaxConfidence        float64           `json:"max_confidence"`
	NeedsReview          bool              `json:"needs_review"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ProjectLink is the one-way procedure-to-project link with its match level.
type ProjectLink struct {
	ID          string     `json:"id" badgerhold:"key"`
	ProjectID   string     `json:"project_id" badgerhold:"index"`
	ProcedureID string     `json:"procedure_id" badgerhold:"index"`
	MatchLevel  MatchLevel `json:"match_level"`
	Confidence  float64    `json:"confidence"`
	CreatedAt   time.Time  `json:"created_at"`
}
