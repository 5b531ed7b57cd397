package resolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/models"
)

// ProjectStore is the slice of the DAO the resolver needs. CommitResolution
// must write all three records in one transaction.
type ProjectStore interface {
	ProjectsByMunicipality(municipalityKey string) ([]*models.ProjectEntity, error)
	ProceduresByProject(projectID string) ([]*models.Procedure, error)
	CommitResolution(proc *models.Procedure, link *models.ProjectLink, project *models.ProjectEntity) error
}

// linkConfidence per match level.
var linkConfidence = map[models.MatchLevel]float64{
	models.MatchParcel:   0.95,
	models.MatchPlan:     0.90,
	models.MatchDevTitle: 0.80,
	models.MatchTitleSig: 0.70,
	models.Match36New:    1.0,
	models.MatchNew:      1.0,
}

// tier is one matching rule; extension point for future geometry/BBOX
// matching.
type tier struct {
	level models.MatchLevel
	match func(sig Signature, project *models.ProjectEntity) bool
}

var matchTiers = []tier{
	{models.MatchParcel, func(sig Signature, p *models.ProjectEntity) bool {
		return sig.ParcelToken != "" && sig.ParcelToken == p.ParcelToken
	}},
	{models.MatchPlan, func(sig Signature, p *models.ProjectEntity) bool {
		return sig.PlanToken != "" && sig.PlanToken == p.PlanToken
	}},
	{models.MatchDevTitle, func(sig Signature, p *models.ProjectEntity) bool {
		return sig.DeveloperNorm != "" && sig.DeveloperNorm == p.DeveloperNorm &&
			len(sig.TitleSignature) > 0 && p.TitleSignature != "" &&
			Jaccard(sig.TitleSignature, strings.Fields(p.TitleSignature)) >= 0.6
	}},
	// Empty signatures never match: two titles made of stopwords say
	// nothing about being the same project.
	{models.MatchTitleSig, func(sig Signature, p *models.ProjectEntity) bool {
		return len(sig.TitleSignature) > 0 && p.TitleSignature != "" &&
			Jaccard(sig.TitleSignature, strings.Fields(p.TitleSignature)) >= 0.8
	}},
}

// Resolver attaches procedures to project entities and keeps rollups current.
type Resolver struct {
	store  ProjectStore
	logger arbor.ILogger
}

// NewResolver builds a resolver over the given store.
func NewResolver(store ProjectStore, logger arbor.ILogger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve links a procedure to an existing project or creates a new one,
// then recomputes the project rollups. The returned level records how the
// link was made.
func (r *Resolver) Resolve(proc *models.Procedure) (*models.ProjectEntity, models.MatchLevel, error) {
	sig := ComputeSignature(proc)

	projects, err := r.store.ProjectsByMunicipality(proc.MunicipalityKey)
	if err != nil {
		return nil, "", fmt.Errorf("loading projects for %s: %w", proc.MunicipalityKey, err)
	}

	project, level := r.findMatch(sig, proc, projects)
	created := project == nil
	if created {
		project = r.newProject(proc, sig)
		if proc.ProcedureType == models.ProcPermit36 {
			level = models.Match36New
		} else {
			level = models.MatchNew
		}
	}

	if err := r.link(proc, project, level); err != nil {
		return nil, "", err
	}

	r.logger.Debug().
		Str("procedure_id", proc.ID).
		Str("project_id", project.ID).
		Str("match_level", string(level)).
		Bool("created", created).
		Msg("procedure resolved")
	return project, level, nil
}

// findMatch runs the tiers strongest-first. A §36 Einvernehmen only accepts
// the hard keys — it is usually the first public trace of a project, so weak
// title matches would glue unrelated permits together.
func (r *Resolver) findMatch(sig Signature, proc *models.Procedure, projects []*models.ProjectEntity) (*models.ProjectEntity, models.MatchLevel) {
	tiers := matchTiers
	if proc.ProcedureType == models.ProcPermit36 {
		tiers = matchTiers[:2]
	}
	for _, t := range tiers {
		for _, p := range projects {
			if t.match(sig, p) {
				return p, t.level
			}
		}
	}
	return nil, ""
}

func (r *Resolver) newProject(proc *models.Procedure, sig Signature) *models.ProjectEntity {
	now := time.Now().UTC()
	return &models.ProjectEntity{
		ID:              common.NewID(),
		MunicipalityKey: proc.MunicipalityKey,
		State:           proc.State,
		County:          proc.County,
		PlanToken:       sig.PlanToken,
		ParcelToken:     sig.ParcelToken,
		DeveloperNorm:   sig.DeveloperNorm,
		TitleSignature:  strings.Join(sig.TitleSignature, " "),
		MaturityStage:   models.StageDiscovered,
		LegalBasisBest:  models.BasisUnknown,
		ComponentsBest:  models.ComponentsUnclear,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// link backfills empty signature keys on the project, recomputes rollups
// from all linked procedures, and commits the procedure, the link row, and
// the project in one transaction.
func (r *Resolver) link(proc *models.Procedure, project *models.ProjectEntity, level models.MatchLevel) error {
	proc.ProjectID = project.ID
	linkRow := &models.ProjectLink{
		ID:          common.NewID(),
		ProjectID:   project.ID,
		ProcedureID: proc.ID,
		MatchLevel:  level,
		Confidence:  linkConfidence[level],
		CreatedAt:   time.Now().UTC(),
	}

	sig := ComputeSignature(proc)
	if project.ParcelToken == "" {
		project.ParcelToken = sig.ParcelToken
	}
	if project.PlanToken == "" {
		project.PlanToken = sig.PlanToken
	}
	if project.DeveloperNorm == "" {
		project.DeveloperNorm = sig.DeveloperNorm
	}
	if project.TitleSignature == "" {
		project.TitleSignature = strings.Join(sig.TitleSignature, " ")
	}

	procs, err := r.store.ProceduresByProject(project.ID)
	if err != nil {
		return fmt.Errorf("loading linked procedures: %w", err)
	}
	found := false
	for _, p := range procs {
		if p.ID == proc.ID {
			found = true
			break
		}
	}
	if !found {
		procs = append(procs, proc)
	}

	Recompute(project, procs)
	project.UpdatedAt = time.Now().UTC()
	if err := r.store.CommitResolution(proc, linkRow, project); err != nil {
		return fmt.Errorf("committing resolution: %w", err)
	}
	return nil
}
