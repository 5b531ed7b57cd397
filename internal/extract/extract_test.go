package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantities(t *testing.T) {
	text := "Geplant sind 25 MW Leistung und 50 MWh Kapazität, Eigenverbrauch 400 kW."
	qs := Quantities(text)
	require.Len(t, qs, 3)

	mw, ok := CapacityMW(text)
	require.True(t, ok)
	assert.Equal(t, 25.0, mw)

	mwh, ok := CapacityMWh(text)
	require.True(t, ok)
	assert.Equal(t, 50.0, mwh)
}

func TestQuantitiesGermanDecimals(t *testing.T) {
	mw, ok := CapacityMW("eine Anlage mit 12,5 MW")
	require.True(t, ok)
	assert.Equal(t, 12.5, mw)
}

func TestQuantitiesKilowattConversion(t *testing.T) {
	mw, ok := CapacityMW("Anschlussleistung 500 kW")
	require.True(t, ok)
	assert.Equal(t, 0.5, mw)

	mwh, ok := CapacityMWh("Speicher mit 2000 kWh")
	require.True(t, ok)
	assert.Equal(t, 2.0, mwh)
}

func TestQuantitiesMaxWins(t *testing.T) {
	mw, ok := CapacityMW("Bauabschnitt 1: 10 MW, Endausbau 80 MW")
	require.True(t, ok)
	assert.Equal(t, 80.0, mw)
}

func TestQuantitiesNone(t *testing.T) {
	_, ok := CapacityMW("kein Zahlenwerk hier")
	assert.False(t, ok)
}

func TestAreas(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"hectares", "Plangebiet von 4,2 ha", 4.2},
		{"square meters", "Fläche 25000 m²", 2.5},
		{"qm spelling", "rund 10000 qm", 1.0},
		{"km2", "0,5 km² Sondergebiet", 50.0},
		{"largest wins", "Teilfläche 2 ha, gesamt 12 ha", 12.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LargestArea(tt.text)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}

	_, ok := LargestArea("ohne Flächenangabe")
	assert.False(t, ok)
}

func TestDates(t *testing.T) {
	text := "Der Aufstellungsbeschluss wurde am 14.03.2024 gefasst. Druckdatum 01.01.1999."
	dates := Dates(text)
	require.Len(t, dates, 1, "out-of-window years are dropped")
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), dates[0].Date)
}

func TestDatesPDFSpacing(t *testing.T) {
	dates := Dates("beschlossen am 14. 03. 2024")
	require.Len(t, dates, 1)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), dates[0].Date)
}

func TestDatesRejectsImpossible(t *testing.T) {
	assert.Empty(t, Dates("am 31.02.2024"))
	assert.Empty(t, Dates("am 14.13.2024"))
}

func TestDecisionDate(t *testing.T) {
	t.Run("keyword proximity wins", func(t *testing.T) {
		text := "Sitzung vom 02.01.2024. Der Satzungsbeschluss erfolgte am 20.06.2024 einstimmig."
		got, ok := DecisionDate(text)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), got)
	})
	t.Run("fallback to first date", func(t *testing.T) {
		got, ok := DecisionDate("Veröffentlicht am 05.02.2024.")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), got)
	})
	t.Run("no dates", func(t *testing.T) {
		_, ok := DecisionDate("kein Datum")
		assert.False(t, ok)
	})
}

func TestCompanies(t *testing.T) {
	text := "Antrag der Sonnenfeld Energie GmbH auf Errichtung; Netzbetreiber ist die E.DIS Netz GmbH."
	companies := Companies(text)
	require.NotEmpty(t, companies)
	assert.Contains(t, companies[0], "GmbH")

	dev, ok := DeveloperCompany(text)
	require.True(t, ok)
	assert.Contains(t, dev, "Sonnenfeld Energie GmbH")
}

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sonnenfeld Energie GmbH", "sonnenfeld energie"},
		{"Windkraft Nord AG", "windkraft nord"},
		{"Beispiel GmbH & Co. KG", "beispiel"},
		{"  Acme-Speicher UG ", "acmespeicher"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCompany(tt.in), tt.in)
	}
}

func TestParcel(t *testing.T) {
	text := "Das Vorhaben liegt in der Gemarkung Metzdorf, Flur 3, Flurstück 12."
	p := ParcelOf(text)
	assert.Equal(t, "Metzdorf", p.Gemarkung)
	assert.Equal(t, "3", p.Flur)
	assert.Equal(t, "12", p.Flurstueck)
	assert.True(t, p.Complete())
	assert.Equal(t, "metzdorf|3|12", p.Token())
}

func TestParcelIncomplete(t *testing.T) {
	p := ParcelOf("Flur 7 ohne weitere Angaben")
	assert.False(t, p.Complete())
	assert.Equal(t, "", p.Token())
}

func TestLocation(t *testing.T) {
	text := "Gemarkung Metzdorf, Flur 3, Flurstück 12, nahe der Hauptstraße"
	loc, ok := Location(text)
	require.True(t, ok)
	assert.Contains(t, loc, "Gemarkung: Metzdorf")
	assert.Contains(t, loc, "Flurstück: 12")

	_, ok = Location("nichts verortbares")
	assert.False(t, ok)
}
