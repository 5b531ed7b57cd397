package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanToken(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bplan with nr", "Bebauungsplan Nr. 12/2024 Batteriespeicher", "12/2024"},
		{"b-plan short form", "B-Plan 7a Gewerbegebiet", "7a"},
		{"nummer spelled out", "Bebauungsplan Nummer 3", "3"},
		{"quoted plan name", `Aufstellung des Plans „Sondergebiet Energiepark Süd“`, "sondergebiet energiepark sued"},
		{"quoted without plan term ignored", `Die Sitzung „Gemeinsam stark“ tagt`, ""},
		{"nothing", "Einvernehmen zum Bauantrag", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanToken(tt.text))
		})
	}
}

func TestParcelToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"full triple",
			"Gemarkung: Metzdorf; Flur: 3; Flurstück: 12",
			"gemarkung=metzdorf;flur=3;flurstueck=12",
		},
		{
			"single letter gemarkung",
			"Gemarkung: X; Flur: 3; Flurstück: 12",
			"gemarkung=x;flur=3;flurstueck=12",
		},
		{
			"fraction flurstueck",
			"Gemarkung: Ort; Flur: 1; Flurstück: 123/4",
			"gemarkung=ort;flur=1;flurstueck=123/4",
		},
		{"empty", "", ""},
		{"no parcel info", "am Ortsrand gelegen", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParcelToken(tt.in))
		})
	}
}

func TestDeveloperNorm(t *testing.T) {
	assert.Equal(t, "sonnenfeld energie", DeveloperNorm("Sonnenfeld Energie GmbH"))
	assert.Equal(t, "windkraft nord", DeveloperNorm("Windkraft Nord AG"))
	assert.Equal(t, DeveloperNorm("SONNENFELD ENERGIE GMBH"), DeveloperNorm("Sonnenfeld Energie GmbH"))
	assert.Equal(t, "", DeveloperNorm(""))
}

func TestTitleSignature(t *testing.T) {
	sig := TitleSignature("Öffentliche Auslegung des Bebauungsplans Batteriespeicher Solarfeld Grünheide")
	assert.Contains(t, sig, "batteriespeicher")
	assert.Contains(t, sig, "solarfeld")
	assert.Contains(t, sig, "gruenheide")
	assert.NotContains(t, sig, "auslegung", "procedural wording is stripped")

	// Stable regardless of token order in the title.
	sig2 := TitleSignature("Batteriespeicher Grünheide Solarfeld — öffentliche Auslegung")
	assert.Equal(t, sig, sig2)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{"a"}, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a"}))
	assert.InDelta(t, 1.0/3.0, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 0.0001)
}
