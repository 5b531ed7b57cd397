// Package keywords holds the frozen German term sets that are the only ground
// truth for relevance, plus whitespace-tolerant matchers over normalized text.
//
// PDFs routinely split words mid-token, so every matcher tolerates one
// inserted whitespace between adjacent characters of a term. It must not
// bridge across multiple words: a literal space in a term matches exactly one
// whitespace run, and `\s?` is only inserted between adjacent characters of
// the term itself.
package keywords

import (
	"regexp"
	"strings"
)

// Match is one occurrence of a term in normalized text.
type Match struct {
	Term  string
	Start int
	End   int
}

// Set is a frozen named term list with compiled matchers.
type Set struct {
	Name     string
	Terms    []string
	patterns []*regexp.Regexp
}

// NewSet compiles a term list into a matcher set.
func NewSet(name string, terms ...string) *Set {
	s := &Set{Name: name, Terms: terms}
	s.patterns = make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		s.patterns[i] = compileTolerant(t)
	}
	return s
}

// compileTolerant builds the regex for one term: `\s?` between adjacent
// characters, literal spaces become a single `\s`, and a word boundary at the
// start when the term begins with a word character.
//
// The trailing boundary depends on the term. German builds compounds by
// suffixing ("Batteriespeicheranlage", "Auslegungsbeschluss"), so long stems
// must match as prefixes of longer words. Short terms ("bess", "pv", "kv")
// keep the trailing boundary or they would match inside unrelated words
// ("besser"). The cut is a final token of five or more word characters.
func compileTolerant(term string) *regexp.Regexp {
	var b strings.Builder
	runes := []rune(term)
	for i, r := range runes {
		if r == ' ' {
			b.WriteString(`\s`)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
		if i < len(runes)-1 && runes[i+1] != ' ' {
			b.WriteString(`\s?`)
		}
	}
	pattern := b.String()
	if isWordRune(runes[0]) {
		pattern = `\b` + pattern
	}
	if isWordRune(runes[len(runes)-1]) && lastTokenLen(runes) < 5 {
		pattern = pattern + `\b`
	}
	return regexp.MustCompile(pattern)
}

// lastTokenLen counts the trailing run of word runes.
func lastTokenLen(runes []rune) int {
	n := 0
	for i := len(runes) - 1; i >= 0 && isWordRune(runes[i]); i-- {
		n++
	}
	return n
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// Contains reports whether any term of the set occurs in text.
func (s *Set) Contains(text string) bool {
	for _, p := range s.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Count returns how many distinct terms of the set occur in text.
func (s *Set) Count(text string) int {
	n := 0
	for _, p := range s.patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// FirstMatches returns the earliest occurrence of each matched term.
func (s *Set) FirstMatches(text string) []Match {
	var out []Match
	for i, p := range s.patterns {
		if loc := p.FindStringIndex(text); loc != nil {
			out = append(out, Match{Term: s.Terms[i], Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// Frozen sets. Matched case-sensitively against normalized (lowercased,
// umlaut-folded, whitespace-collapsed) text.
var (
	BESSExplicit = NewSet("BESS_EXPLICIT",
		"batteriespeicher", "energiespeicher", "stromspeicher",
		"battery energy storage", "bess")

	BESSContainerGrid = NewSet("BESS_CONTAINER_GRID",
		"containeranlage", "anlage zur energiespeicherung", "lithium", "li-ion")

	PlanningStrong = NewSet("PLANNING_STRONG",
		"bebauungsplan", "b-plan", "bauleitplanung")

	PlanningSteps = NewSet("PLANNING_STEPS",
		"aufstellungsbeschluss", "fruehzeitige beteiligung", "auslegung",
		"satzungsbeschluss")

	PermitStrong = NewSet("PERMIT_STRONG",
		"bauvorbescheid", "bauvoranfrage", "bauvorantrag", "baugenehmigung",
		"kenntnisnahme", "antrag auf errichtung", "standortgemeinde",
		"einvernehmen", "§36", "§ 36")

	GridStrong = NewSet("GRID_STRONG",
		"umspannwerk", "110 kv", "220 kv", "380 kv", "hoechstspannung",
		"hochspannung")

	GridMedium = NewSet("GRID_MEDIUM",
		"mittelspannung", "20 kv", "30 kv", "schaltanlage", "trafostation",
		"netzanschluss")

	NegativeStorage = NewSet("NEGATIVE_STORAGE",
		"waermespeicher", "wasserspeicher", "datenspeicher", "gasspeicher",
		"pufferspeicher", "eisspeicher")

	Zoning = NewSet("ZONING",
		"sondergebiet", "industriegebiet", "gewerbegebiet")

	EnergyContext = NewSet("ENERGY_CONTEXT",
		"pv", "photovoltaik", "solarpark", "wind", "windenergie", "windpark")

	// Speicher is the generic storage stem rule R3 keys on.
	Speicher = NewSet("SPEICHER", "speicher")
)

// RISMarkers are the body markers an HTTP-downgraded RIS response must carry
// before the fallback is accepted.
var RISMarkers = NewSet("RIS_MARKERS",
	"sitzung", "gremium", "tagesordnung", "sessionnet",
	"ratsinformationssystem", "vorlage")

// ContainerTitle marks gazette-issue style wrappers in titles and URLs.
var ContainerTitle = NewSet("CONTAINER_TITLE",
	"amtsblatt", "sonderamtsblatt", "bekanntmachungsblatt",
	"bekanntmachung der stadt", "ausgabe", "jahrgang")

// PrivilegedAgenda are the RIS agenda-title terms that justify a follow-up
// fetch of the item page for attachments, and the RIS container exception.
var PrivilegedAgenda = NewSet("PRIVILEGED_AGENDA",
	"einvernehmen", "stellungnahme", "bauantrag", "bauvoranfrage",
	"vorhaben", "kenntnisnahme", "antrag auf errichtung")
