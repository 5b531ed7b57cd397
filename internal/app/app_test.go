package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/queue"
)

// quietTownServer is a municipality website whose council system and gazette
// exist but carry nothing relevant. The run must drain cleanly anyway.
func quietTownServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="/ris/si0100">Ratsinformationssystem</a>
			<a href="/amtsblatt">Amtsblatt der Gemeinde</a>
		</body></html>`)
	})
	mux.HandleFunc("/ris/si0100", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1>Sitzungskalender</h1>
			<p>Gremien, Tagesordnungen und Vorlagen.</p>
			<p>Derzeit keine Sitzungen.</p>
		</body></html>`)
	})
	mux.HandleFunc("/amtsblatt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Keine aktuellen Ausgaben.</p></body></html>`)
	})
	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, websiteURL string) *common.Config {
	t.Helper()
	base := t.TempDir()

	seedsPath := filepath.Join(base, "municipalities.toml")
	seeds := fmt.Sprintf(`
[[municipality]]
key = "12062500"
name = "Metzdorf"
county = "Oder-Spree"
state = "BB"
official_website_url = %q

[[municipality]]
key = "09161000"
name = "Ingolstadt"
county = "IN"
state = "BY"
`, websiteURL)
	require.NoError(t, os.WriteFile(seedsPath, []byte(seeds), 0644))

	cfg := common.DefaultConfig()
	cfg.State = "BB"
	cfg.Crawler.CacheBase = filepath.Join(base, "cache")
	cfg.Crawler.TextCacheBase = filepath.Join(base, "text_cache")
	cfg.Crawler.DefaultHostDelay = time.Millisecond
	cfg.Crawler.Retries = 1
	cfg.Crawler.FollowRobotsTxt = false
	cfg.Storage.BadgerPath = filepath.Join(base, "badger")
	cfg.Storage.BasePath = filepath.Join(base, "documents")
	cfg.Queue.PollInterval = 5 * time.Millisecond
	cfg.Seeds.Path = seedsPath
	return cfg
}

func TestRunCrawlDrainsAndRecordsStats(t *testing.T) {
	srv := quietTownServer(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	a, err := New(cfg, common.GetLogger())
	require.NoError(t, err)
	defer a.Close()

	// The state filter keeps only the Brandenburg seed.
	require.Len(t, a.Seeds, 1)
	assert.Equal(t, "Metzdorf", a.Seeds[0].Name)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	runID, err := a.RunCrawl(ctx)
	require.NoError(t, err)

	counts, err := a.Queue.Counts(runID)
	require.NoError(t, err)
	assert.Zero(t, counts[queue.JobPending])
	assert.Zero(t, counts[queue.JobRunning])
	assert.Zero(t, counts[queue.JobFailed])

	stats, err := a.Store.Stats.ByRun(runID)
	require.NoError(t, err)
	assert.Len(t, stats, 4)

	projects, err := a.Store.Projects.All()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestExportAfterRun(t *testing.T) {
	srv := quietTownServer(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	a, err := New(cfg, common.GetLogger())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	_, err = a.RunCrawl(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "register.xlsx")
	require.NoError(t, a.Export(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "all_projects")
}

func TestNewRejectsMissingSeeds(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Seeds.Path = filepath.Join(t.TempDir(), "missing.toml")
	_, err := New(cfg, common.GetLogger())
	assert.Error(t, err)
}

func TestNewRejectsEmptyStateFilter(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.State = "SH"
	_, err := New(cfg, common.GetLogger())
	assert.Error(t, err)
}

func TestFilterByState(t *testing.T) {
	seeds := []models.MunicipalitySeed{
		{Key: "1", State: "BB"},
		{Key: "2", State: "BY"},
		{Key: "3", State: "BB"},
	}
	got := filterByState(seeds, "BB")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Key)
	assert.Equal(t, "3", got[1].Key)
}
