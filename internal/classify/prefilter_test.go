package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bessradar/bessradar/internal/models"
)

func TestThresholdTable(t *testing.T) {
	tests := []struct {
		source models.DiscoverySource
		mode   models.CrawlMode
		want   float64
	}{
		{models.SourceRIS, models.ModeFast, 0.35},
		{models.SourceRIS, models.ModeDeep, 0.20},
		{models.SourceAmtsblatt, models.ModeFast, 0.50},
		{models.SourceAmtsblatt, models.ModeDeep, 0.30},
		{models.SourceMunicipalWebsite, models.ModeFast, 0.60},
		{models.SourceMunicipalWebsite, models.ModeDeep, 0.50},
		{models.SourceLandkreis, models.ModeFast, 0.60},
		{models.SourceLandkreis, models.ModeDeep, 0.30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Threshold(tt.source, tt.mode), "%s/%s", tt.source, tt.mode)
	}
}

func TestShouldExtract(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		url       string
		source    models.DiscoverySource
		mode      models.CrawlMode
		wantScore float64
		wantPass  bool
	}{
		{
			name:      "bess title with procedure term",
			title:     "Aufstellungsbeschluss Batteriespeicher Süd",
			url:       "https://ris.example.de/to0100.asp?id=1",
			source:    models.SourceRIS,
			mode:      models.ModeFast,
			wantScore: 0.9,
			wantPass:  true,
		},
		{
			name:      "procedure term only fails municipal fast",
			title:     "Bebauungsplan Gewerbegebiet West",
			url:       "https://gemeinde.example.de/seite",
			source:    models.SourceMunicipalWebsite,
			mode:      models.ModeFast,
			wantScore: 0.3,
			wantPass:  false,
		},
		{
			name:      "procedure term passes ris deep",
			title:     "Bebauungsplan Gewerbegebiet West",
			url:       "https://gemeinde.example.de/seite",
			source:    models.SourceRIS,
			mode:      models.ModeDeep,
			wantScore: 0.3,
			wantPass:  true,
		},
		{
			name:      "url signal adds",
			title:     "Bebauungsplan Gewerbegebiet West",
			url:       "https://gemeinde.example.de/bauleitplanung/auslegung",
			source:    models.SourceAmtsblatt,
			mode:      models.ModeFast,
			wantScore: 0.5,
			wantPass:  true,
		},
		{
			name:      "container title penalized",
			title:     "Amtsblatt Nr. 3/2024 — Auslegung Bebauungsplan",
			url:       "https://stadt.example.de/amtsblaetter",
			source:    models.SourceAmtsblatt,
			mode:      models.ModeDeep,
			wantScore: -0.4,
			wantPass:  false,
		},
		{
			name:      "bess container title still passes ris",
			title:     "Amtsblatt Sonderausgabe Batteriespeicher — Aufstellungsbeschluss",
			url:       "https://ris.example.de/si0100.asp",
			source:    models.SourceRIS,
			mode:      models.ModeDeep,
			wantScore: 0.2,
			wantPass:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, pass := ShouldExtract(tt.title, tt.url, tt.source, tt.mode)
			assert.InDelta(t, tt.wantScore, score, 0.001)
			assert.Equal(t, tt.wantPass, pass)
		})
	}
}

func TestShouldExtractGateMatchesThreshold(t *testing.T) {
	// The pass decision is exactly score >= threshold, nothing else.
	titles := []string{
		"Batteriespeicher",
		"Auslegung Bebauungsplan",
		"Amtsblatt Nr. 1",
		"Einvernehmen Bauantrag Batteriespeicher",
	}
	sources := []models.DiscoverySource{
		models.SourceRIS, models.SourceAmtsblatt, models.SourceMunicipalWebsite,
	}
	for _, title := range titles {
		for _, src := range sources {
			for _, mode := range []models.CrawlMode{models.ModeFast, models.ModeDeep} {
				score, pass := ShouldExtract(title, "https://example.de/x", src, mode)
				assert.Equal(t, score >= Threshold(src, mode), pass)
			}
		}
	}
}
