package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStable(t *testing.T) {
	a := Key("https://example.de/doc.pdf", 1234)
	b := Key("https://example.de/doc.pdf", 1234)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Key("https://example.de/doc.pdf", 1235))
	assert.NotEqual(t, a, Key("https://example.de/other.pdf", 1234))
}

func TestCacheRoundtrip(t *testing.T) {
	c := NewCache(t.TempDir())

	res := Result{
		Text:         "Aufstellungsbeschluss Batteriespeicher",
		PageMap:      []int{0, 20},
		HasTextLayer: true,
		PagesRead:    2,
		TotalPages:   10,
	}
	c.Put("https://example.de/doc.pdf", 1234, res)

	got, ok := c.Get("https://example.de/doc.pdf", 1234)
	require.True(t, ok)
	assert.Equal(t, res, got)

	_, ok = c.Get("https://example.de/doc.pdf", 9999)
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache("")
	c.Put("u", 1, Result{Text: "x"})
	_, ok := c.Get("u", 1)
	assert.False(t, ok)
}

func TestHasTrigger(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bess term", "Errichtung eines Batteriespeichers", true},
		{"permit term", "Antrag auf Baugenehmigung", true},
		{"planning term", "Änderung des Bebauungsplans", true},
		{"nothing", "Haushaltssatzung und Friedhofsgebühren", false},
		{"split word", "Batterie speicher im Gewerbegebiet", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasTrigger(tt.text))
		})
	}
}
