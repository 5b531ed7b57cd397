package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "fast", cfg.Mode)
	assert.Equal(t, 2, cfg.Crawler.PerDomainConcurrency)
	assert.Equal(t, 25, cfg.Crawler.PDFMaxSizeMB)
	assert.True(t, cfg.Crawler.FollowRobotsTxt)
	assert.Contains(t, cfg.Crawler.SSLInsecureAllowlist, "ssl.ratsinfo-online.net")
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := writeFile(t, "bessradar.toml", `
mode = "deep"
state = "BB"

[crawler]
retries = 5
pdf_max_size_mb = 50

[crawler.host_delays]
"geobasis-bb.de" = "10s"

[schedule]
enabled = true
cron = "0 3 * * *"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "deep", cfg.Mode)
	assert.Equal(t, 5, cfg.Crawler.Retries)
	assert.Equal(t, 50, cfg.Crawler.PDFMaxSizeMB)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Cron)

	delays := cfg.Crawler.HostDelayTable()
	assert.Equal(t, 10*time.Second, delays["geobasis-bb.de"])

	// Values the file does not mention keep their defaults.
	assert.Equal(t, 100, cfg.Crawler.GlobalConcurrency)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CRAWL_MODE", "deep")
	t.Setenv("CRAWL_RETRIES", "1")
	t.Setenv("CRAWL_SSL_INSECURE_ALLOWLIST", "ris.example.de, Other.Example.DE")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "deep", cfg.Mode)
	assert.Equal(t, 1, cfg.Crawler.Retries)
	assert.Contains(t, cfg.Crawler.SSLInsecureAllowlist, "ris.example.de")
	assert.Contains(t, cfg.Crawler.SSLInsecureAllowlist, "other.example.de")
}

func TestLoadConfigRejectsInvalidMode(t *testing.T) {
	path := writeFile(t, "bad.toml", `mode = "thorough"`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.toml", `
[crawler]
retries = 99
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadSeeds(t *testing.T) {
	path := writeFile(t, "municipalities.toml", `
[[municipality]]
key = "12062500"
name = "Metzdorf"
county = "MOL"
state = "BB"
official_website_url = "https://metzdorf.example.de"

[[municipality]]
key = "12060020"
name = "Ahrensfelde"
county = "BAR"
state = "BB"
`)
	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "12062500", seeds[0].Key)
	assert.Equal(t, "Metzdorf", seeds[0].Name)
	assert.Equal(t, "https://metzdorf.example.de", seeds[0].OfficialWebsiteURL)
	assert.Equal(t, "Ahrensfelde", seeds[1].Name)
}

func TestLoadSeedsMissingFile(t *testing.T) {
	_, err := LoadSeeds(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
