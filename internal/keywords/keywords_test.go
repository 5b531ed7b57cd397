package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitespaceTolerance(t *testing.T) {
	tests := []struct {
		name string
		set  *Set
		text string
		want bool
	}{
		{"plain match", BESSExplicit, "neue batteriespeicher geplant", true},
		{"pdf split word", BESSExplicit, "batterie speicher am umspannwerk", true},
		{"split at every char still one word", BESSExplicit, "b a t t e r i e s p e i c h e r", true},
		{"compound suffix", BESSExplicit, "errichtung einer batteriespeicheranlage", true},
		{"no bridging across words", PlanningStrong, "bebauungs regeln und plan", false},
		{"multi word term", BESSExplicit, "battery energy storage projekt", true},
		{"multi word term split inside word", BESSExplicit, "battery ener gy storage", true},
		{"short term bounded", BESSExplicit, "es wird alles besser", false},
		{"short term exact", BESSExplicit, "bess am netz", true},
		{"speicher prefix blocked", Speicher, "der wasserspeicher", false},
		{"speicher suffix allowed", Speicher, "die speicheranlage", true},
		{"paragraph sign spacing", PermitStrong, "einvernehmen nach §36 baugb", true},
		{"paragraph sign spaced", PermitStrong, "einvernehmen nach § 36 baugb", true},
		{"kv with space", GridStrong, "anschluss an 110 kv leitung", true},
		{"kv bounded", GridStrong, "110 kvarianten", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.Contains(tt.text))
		})
	}
}

func TestCountDistinctTerms(t *testing.T) {
	text := "umspannwerk mit 110 kv anbindung und hochspannungstrasse"
	assert.Equal(t, 3, GridStrong.Count(text))

	assert.Equal(t, 0, GridStrong.Count("nichts davon"))
}

func TestFirstMatches(t *testing.T) {
	text := "zur auslegung: der aufstellungsbeschluss und nochmal auslegung"
	matches := PlanningSteps.FirstMatches(text)

	byTerm := make(map[string]Match)
	for _, m := range matches {
		byTerm[m.Term] = m
	}
	assert.Len(t, matches, 2)
	// Earliest occurrence wins.
	assert.Equal(t, 4, byTerm["auslegung"].Start)
	assert.Equal(t, "aufstellungsbeschluss", text[byTerm["aufstellungsbeschluss"].Start:byTerm["aufstellungsbeschluss"].End])
}

func TestNegativeStorageDoesNotTripExplicit(t *testing.T) {
	text := "neuer waermespeicher der stadtwerke"
	assert.False(t, BESSExplicit.Contains(text))
	assert.True(t, NegativeStorage.Contains(text))
	assert.False(t, Speicher.Contains(text))
}
