// Package export writes the consolidated project register to an Excel
// workbook: every project, the high-confidence subset, the per-project
// procedure timeline and a diagnostics summary.
package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/storage"
)

// Projects with at least this confidence and one typed procedure make the
// high-confidence sheet.
const highConfidenceMin = 0.6

// Exporter reads the store and writes workbooks.
type Exporter struct {
	store  *storage.Manager
	logger arbor.ILogger
}

func NewExporter(store *storage.Manager, logger arbor.ILogger) *Exporter {
	return &Exporter{store: store, logger: logger}
}

// Write builds the workbook and saves it to path.
func (e *Exporter) Write(path string) error {
	projects, err := e.store.Projects.All()
	if err != nil {
		return err
	}
	procedures, err := e.store.Procedures.All()
	if err != nil {
		return err
	}
	sources, err := e.store.Sources.All()
	if err != nil {
		return err
	}

	sort.Slice(projects, func(i, j int) bool {
		di, dj := dateOrZero(projects[i].FirstSeenDate), dateOrZero(projects[j].FirstSeenDate)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return projects[i].ID < projects[j].ID
	})

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeProjects(f, "all_projects", projects); err != nil {
		return err
	}
	if err := e.writeProjects(f, "high_confidence_projects", highConfidence(projects, procedures)); err != nil {
		return err
	}
	if err := e.writeTimeline(f, projects, procedures, sources); err != nil {
		return err
	}
	if err := e.writeDiagnostics(f, projects, procedures, sources); err != nil {
		return err
	}

	// Drop the default sheet so the workbook opens on all_projects.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	e.logger.Info().
		Str("path", path).
		Int("projects", len(projects)).
		Int("procedures", len(procedures)).
		Msg("export written")
	return nil
}

var projectHeader = []interface{}{
	"project_id", "state", "county", "municipality_key", "canonical_project_name",
	"maturity_stage", "legal_basis_best", "project_components", "developer_company_best",
	"site_location_best", "capacity_mw_best", "capacity_mwh_best", "area_hectares_best",
	"first_seen_date", "last_seen_date", "max_confidence", "needs_review",
	"number_of_procedures",
}

func (e *Exporter) writeProjects(f *excelize.File, sheet string, projects []*models.ProjectEntity) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &projectHeader); err != nil {
		return err
	}
	for i, p := range projects {
		procs, err := e.store.Procedures.ByProject(p.ID)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.ID, p.State, p.County, p.MunicipalityKey, p.CanonicalProjectName,
			string(p.MaturityStage), string(p.LegalBasisBest), string(p.ComponentsBest),
			p.DeveloperBest, p.SiteLocationBest,
			p.CapacityMWBest, p.CapacityMWhBest, p.AreaHectaresBest,
			dateCell(p.FirstSeenDate), dateCell(p.LastSeenDate),
			p.MaxConfidence, p.NeedsReview, len(procs),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return e.styleSheet(f, sheet, len(projectHeader))
}

var timelineHeader = []interface{}{
	"project_id", "procedure_id", "procedure_type", "decision_date",
	"discovery_source", "discovery_path", "title", "top_evidence_snippet",
}

func (e *Exporter) writeTimeline(f *excelize.File, projects []*models.ProjectEntity, procedures []*models.Procedure, sources []*models.Source) error {
	const sheet = "project_timeline"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &timelineHeader); err != nil {
		return err
	}

	pathOf := make(map[string]string, len(sources))
	for _, s := range sources {
		if s.ProcedureID != "" && pathOf[s.ProcedureID] == "" {
			pathOf[s.ProcedureID] = s.DiscoveryPath
		}
	}

	byProject := make(map[string][]*models.Procedure)
	for _, p := range procedures {
		if p.ProjectID != "" {
			byProject[p.ProjectID] = append(byProject[p.ProjectID], p)
		}
	}

	rowNum := 2
	for _, project := range projects {
		procs := byProject[project.ID]
		sort.Slice(procs, func(i, j int) bool {
			di, dj := dateOrZero(procs[i].DecisionDate), dateOrZero(procs[j].DecisionDate)
			if !di.Equal(dj) {
				return di.Before(dj)
			}
			return procs[i].CreatedAt.Before(procs[j].CreatedAt)
		})
		for _, p := range procs {
			row := []interface{}{
				project.ID, p.ID, string(p.ProcedureType), dateCell(p.DecisionDate),
				string(p.DiscoverySource), pathOf[p.ID], p.Title, topSnippet(p.EvidenceSnippets),
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return e.styleSheet(f, sheet, len(timelineHeader))
}

func (e *Exporter) writeDiagnostics(f *excelize.File, projects []*models.ProjectEntity, procedures []*models.Procedure, sources []*models.Source) error {
	const sheet = "diagnostics"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	header := []interface{}{"metric", "value"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	auditOnly := 0
	for _, s := range sources {
		if s.AuditOnly() {
			auditOnly++
		}
	}
	typed := 0
	bySource := map[models.DiscoverySource]int{}
	for _, p := range procedures {
		if p.ProcedureType != models.ProcUnknown {
			typed++
		}
		bySource[p.DiscoverySource]++
	}
	byStage := map[models.MaturityStage]int{}
	byCounty := map[string]int{}
	for _, p := range projects {
		byStage[p.MaturityStage]++
		if p.County != "" {
			byCounty[p.County]++
		}
	}

	type metric struct {
		name  string
		value int
	}
	metrics := []metric{
		{"procedures_total", len(procedures)},
		{"procedures_typed", typed},
		{"sources_audit_only", auditOnly},
		{"projects_total", len(projects)},
	}
	for _, stage := range sortedKeys(byStage) {
		metrics = append(metrics, metric{"projects_" + string(stage), byStage[stage]})
	}
	for _, county := range sortedKeys(byCounty) {
		metrics = append(metrics, metric{"projects_county_" + county, byCounty[county]})
	}
	for _, src := range sortedKeys(bySource) {
		metrics = append(metrics, metric{"procedures_source_" + string(src), bySource[src]})
	}

	for i, m := range metrics {
		row := []interface{}{m.name, m.value}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return e.styleSheet(f, sheet, len(header))
}

// styleSheet bolds the header row and widens the columns.
func (e *Exporter) styleSheet(f *excelize.File, sheet string, cols int) error {
	styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 22)
}

// highConfidence filters to projects that carry a typed procedure and enough
// confidence to act on.
func highConfidence(projects []*models.ProjectEntity, procedures []*models.Procedure) []*models.ProjectEntity {
	hasTyped := map[string]bool{}
	for _, p := range procedures {
		if p.ProjectID != "" && p.ProcedureType != models.ProcUnknown {
			hasTyped[p.ProjectID] = true
		}
	}
	var out []*models.ProjectEntity
	for _, p := range projects {
		if p.MaxConfidence >= highConfidenceMin && hasTyped[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxConfidence != out[j].MaxConfidence {
			return out[i].MaxConfidence > out[j].MaxConfidence
		}
		return dateOrZero(out[i].FirstSeenDate).After(dateOrZero(out[j].FirstSeenDate))
	})
	return out
}

func topSnippet(snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}
	s := snippets[0]
	if len(s) > 250 {
		s = s[:250]
	}
	return s
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
