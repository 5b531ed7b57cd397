package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/storage"
)

func seededStore(t *testing.T) *storage.Manager {
	t.Helper()
	base := t.TempDir()
	cfg := common.StorageConfig{
		BadgerPath: filepath.Join(base, "badger"),
		BasePath:   base,
	}
	m, err := storage.NewManager(cfg, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	early := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Projects.Upsert(&models.ProjectEntity{
		ID:                   "proj-high",
		MunicipalityKey:      "12062500",
		State:                "BB",
		County:               "MOL",
		CanonicalProjectName: "Batteriespeicher Metzdorf",
		MaturityStage:        models.StageBPlanAufstellung,
		LegalBasisBest:       models.Basis35,
		ComponentsBest:       models.ComponentsBESSOnly,
		CapacityMWBest:       25,
		FirstSeenDate:        &early,
		LastSeenDate:         &late,
		MaxConfidence:        0.9,
	}))
	require.NoError(t, m.Projects.Upsert(&models.ProjectEntity{
		ID:              "proj-low",
		MunicipalityKey: "12062500",
		State:           "BB",
		County:          "MOL",
		MaturityStage:   models.StageDiscovered,
		MaxConfidence:   0.3,
	}))

	require.NoError(t, m.Procedures.Upsert(&models.Procedure{
		ID:              "proc-1",
		Title:           "Aufstellungsbeschluss Bebauungsplan Batteriespeicher",
		MunicipalityKey: "12062500",
		State:           "BB",
		DiscoverySource: models.SourceRIS,
		ProcedureType:   models.ProcBPlanAufstellung,
		LegalBasis:      models.Basis35,
		Confidence:      0.9,
		DecisionDate:    &early,
		ProjectID:       "proj-high",
		EvidenceSnippets: []string{
			"errichtung eines batteriespeichers mit 25 mw",
		},
	}))
	require.NoError(t, m.Procedures.Upsert(&models.Procedure{
		ID:              "proc-2",
		Title:           "Auslegung Bebauungsplan Batteriespeicher",
		MunicipalityKey: "12062500",
		State:           "BB",
		DiscoverySource: models.SourceAmtsblatt,
		ProcedureType:   models.ProcBPlanAuslegung,
		Confidence:      0.8,
		DecisionDate:    &late,
		ProjectID:       "proj-high",
	}))

	require.NoError(t, m.Sources.Upsert(&models.Source{
		ID:              "src-1",
		ProcedureID:     "proc-1",
		SourceURL:       "https://example.test/vorlage/9",
		HTTPStatus:      200,
		DiscoverySource: models.SourceRIS,
		DiscoveryPath:   "ris > gremium > sitzung > vorlage",
	}))
	require.NoError(t, m.Sources.Upsert(&models.Source{
		ID:              "src-audit",
		SourceURL:       "https://example.test/amtsblatt/2024-09.pdf",
		HTTPStatus:      200,
		DiscoverySource: models.SourceAmtsblatt,
	}))

	return m
}

func TestWriteWorkbook(t *testing.T) {
	m := seededStore(t)
	path := filepath.Join(t.TempDir(), "projects.xlsx")

	require.NoError(t, NewExporter(m, common.GetLogger()).Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{"all_projects", "high_confidence_projects", "project_timeline", "diagnostics"},
		f.GetSheetList())

	rows, err := f.GetRows("all_projects")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "project_id", rows[0][0])
	// Sorted by first_seen_date descending; the dated project comes first.
	assert.Equal(t, "proj-high", rows[1][0])
	assert.Equal(t, "Batteriespeicher Metzdorf", rows[1][4])
	assert.Equal(t, "BPLAN_AUFSTELLUNG", rows[1][5])
	assert.Equal(t, "2024-03-12", rows[1][13])

	high, err := f.GetRows("high_confidence_projects")
	require.NoError(t, err)
	require.Len(t, high, 2)
	assert.Equal(t, "proj-high", high[1][0])
}

func TestTimelineOrderedByDecisionDate(t *testing.T) {
	m := seededStore(t)
	path := filepath.Join(t.TempDir(), "projects.xlsx")
	require.NoError(t, NewExporter(m, common.GetLogger()).Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("project_timeline")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "proc-1", rows[1][1])
	assert.Equal(t, "2024-03-12", rows[1][3])
	assert.Equal(t, "ris > gremium > sitzung > vorlage", rows[1][5])
	assert.Contains(t, rows[1][7], "batteriespeichers")
	assert.Equal(t, "proc-2", rows[2][1])
}

func TestDiagnosticsCounts(t *testing.T) {
	m := seededStore(t)
	path := filepath.Join(t.TempDir(), "projects.xlsx")
	require.NoError(t, NewExporter(m, common.GetLogger()).Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("diagnostics")
	require.NoError(t, err)
	metrics := map[string]string{}
	for _, row := range rows[1:] {
		if len(row) >= 2 {
			metrics[row[0]] = row[1]
		}
	}
	assert.Equal(t, "2", metrics["procedures_total"])
	assert.Equal(t, "2", metrics["procedures_typed"])
	assert.Equal(t, "1", metrics["sources_audit_only"])
	assert.Equal(t, "2", metrics["projects_total"])
	assert.Equal(t, "1", metrics["projects_BPLAN_AUFSTELLUNG"])
	assert.Equal(t, "1", metrics["procedures_source_RIS"])
}
