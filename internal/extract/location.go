package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	gemarkungPattern  = regexp.MustCompile(`(?i)gemarkung\s*:?\s+([A-ZÄÖÜ][A-Za-zÄÖÜäöüß-]+(?:\s[A-ZÄÖÜ][A-Za-zÄÖÜäöüß-]+)*)`)
	flurPattern       = regexp.MustCompile(`(?i)flur\s*:?\s+(\d+)`)
	flurstueckPattern = regexp.MustCompile(`(?i)flurst(?:ück|ueck)\s*:?\s+(\d+(?:/\d+)?[a-z]?)`)
	strassePattern    = regexp.MustCompile(`(?i)(?:straße|strasse|str\.)\s+([A-ZÄÖÜ][A-Za-zÄÖÜäöüß-]+(?:\s[A-ZÄÖÜ][A-Za-zÄÖÜäöüß-]+)*)`)
	coordPattern      = regexp.MustCompile(`(\d+[.,]\d+)\s*°?\s*[NSEW]?\s*[,/]\s*(\d+[.,]\d+)\s*°?\s*[NSEW]?`)
)

// Parcel is the (Gemarkung, Flur, Flurstück) triple, the most stable
// geographic key a procedure can carry.
type Parcel struct {
	Gemarkung  string
	Flur       string
	Flurstueck string
}

// Complete reports whether all three components are present.
func (p Parcel) Complete() bool {
	return p.Gemarkung != "" && p.Flur != "" && p.Flurstueck != ""
}

// Token renders the canonical resolver key, empty unless complete.
func (p Parcel) Token() string {
	if !p.Complete() {
		return ""
	}
	return strings.ToLower(p.Gemarkung) + "|" + p.Flur + "|" + strings.ToLower(p.Flurstueck)
}

// ParcelOf extracts the cadastral triple from text. Missing components stay
// empty.
func ParcelOf(text string) Parcel {
	var p Parcel
	if m := gemarkungPattern.FindStringSubmatch(text); m != nil {
		p.Gemarkung = strings.TrimSpace(m[1])
	}
	if m := flurPattern.FindStringSubmatch(text); m != nil {
		p.Flur = m[1]
	}
	if m := flurstueckPattern.FindStringSubmatch(text); m != nil {
		p.Flurstueck = m[1]
	}
	return p
}

// Location builds a human-readable location string from whatever parcel,
// street and coordinate fragments the text yields.
func Location(text string) (string, bool) {
	var parts []string
	p := ParcelOf(text)
	if p.Gemarkung != "" {
		parts = append(parts, "Gemarkung: "+p.Gemarkung)
	}
	if p.Flur != "" {
		parts = append(parts, "Flur: "+p.Flur)
	}
	if p.Flurstueck != "" {
		parts = append(parts, "Flurstück: "+p.Flurstueck)
	}
	if m := strassePattern.FindStringSubmatch(text); m != nil {
		parts = append(parts, "Straße: "+strings.TrimSpace(m[1]))
	}
	if m := coordPattern.FindStringSubmatch(text); m != nil {
		parts = append(parts, fmt.Sprintf("Koordinaten: %s, %s", m[1], m[2]))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "; "), true
}
