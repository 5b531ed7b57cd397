package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<!DOCTYPE html>
<html>
<head><title>Gemeinde Metzdorf — Bekanntmachungen</title>
<script>var tracking = true;</script></head>
<body>
<nav><a href="/impressum">Impressum</a></nav>
<h1>Öffentliche Auslegung</h1>
<p>Der Bebauungsplan Nr. 12 liegt aus.</p>
<a href="/bauleitplanung/bp12.pdf">Bebauungsplan Nr. 12 (PDF)</a>
<a href="https://ris.metzdorf.de/si0100.asp">Ratsinformationssystem</a>
<a href="#top">nach oben</a>
<a href="mailto:rathaus@metzdorf.de">Kontakt</a>
</body>
</html>`

func TestParse(t *testing.T) {
	page, err := Parse([]byte(sample), "https://www.metzdorf.de/aktuelles")
	require.NoError(t, err)

	assert.Equal(t, "Gemeinde Metzdorf — Bekanntmachungen", page.Title)
	assert.Contains(t, page.Text, "Öffentliche Auslegung")
	assert.Contains(t, page.Text, "Bebauungsplan Nr. 12 liegt aus.")
	assert.NotContains(t, page.Text, "tracking", "script content must be stripped")
}

func TestParseLinks(t *testing.T) {
	page, err := Parse([]byte(sample), "https://www.metzdorf.de/aktuelles")
	require.NoError(t, err)

	urls := make(map[string]string)
	for _, l := range page.Links {
		urls[l.URL] = l.Anchor
	}

	assert.Equal(t, "Bebauungsplan Nr. 12 (PDF)", urls["https://www.metzdorf.de/bauleitplanung/bp12.pdf"])
	assert.Equal(t, "Ratsinformationssystem", urls["https://ris.metzdorf.de/si0100.asp"])
	assert.Contains(t, urls, "https://www.metzdorf.de/impressum")

	for u := range urls {
		assert.NotContains(t, u, "mailto:")
		assert.NotContains(t, u, "#top")
	}
}

func TestParseWhitespaceCollapse(t *testing.T) {
	page, err := Parse([]byte("<body><p>viel\n\n\n   Raum</p></body>"), "https://x.de")
	require.NoError(t, err)
	assert.Equal(t, "viel Raum", page.Text)
}
