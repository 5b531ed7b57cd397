// Package resolve maps procedures onto project entities. A project signature
// is computed from plan numbers, cadastral parcels, developer names and title
// tokens; matching runs tier by tier from the strongest key down.
package resolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// Signature is the matching key set of one procedure.
type Signature struct {
	PlanToken       string
	ParcelToken     string
	DeveloperNorm   string
	TitleSignature  []string
	MunicipalityKey string
}

var (
	planNumberPattern = regexp.MustCompile(`b(?:ebauungs)?-?plan\s*(?:nr\.?|nummer)?\s*([a-z0-9][a-z0-9\-/]*)`)
	quotedPattern     = regexp.MustCompile(`["„“”']([^"„“”']{5,50})["„“”']`)

	parcelGemarkung  = regexp.MustCompile(`gemarkung\s*:?\s*([a-z](?:[a-z\s-]*[a-z])?)`)
	parcelFlur       = regexp.MustCompile(`flur\s*:?\s*(\d+)`)
	parcelFlurstueck = regexp.MustCompile(`flurstueck\s*:?\s*(\d+(?:/\d+)?[a-z]?)`)

	titleTokenPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

// stopPhrases are procedural wording stripped from titles before signature
// tokens are taken.
var stopPhrases = []string{
	"fruehzeitige beteiligung",
	"oeffentliche auslegung",
	"zur beteiligung",
	"zur aufstellung",
	"aufstellungsbeschluss",
	"satzungsbeschluss",
	"bekanntmachung",
	"bebauungsplan",
	"tagesordnung",
	"einvernehmen",
	"verfahren",
	"beschluss",
	"auslegung",
	"sitzung",
}

var titleStopwords = map[string]bool{
	"einer": true, "eines": true, "eine": true, "nach": true, "ueber": true,
	"gemaess": true, "errichtung": true, "antrag": true, "baugb": true,
	"gemeinde": true, "stadt": true, "vorlage": true, "anlage": true,
}

// ComputeSignature derives the matching keys for a procedure. Evidence
// snippets widen the plan-token search beyond the title.
func ComputeSignature(proc *models.Procedure) Signature {
	searchText := proc.Title
	for i, s := range proc.EvidenceSnippets {
		if i >= 3 {
			break
		}
		searchText += " " + s
	}

	return Signature{
		PlanToken:       PlanToken(searchText),
		ParcelToken:     ParcelToken(proc.SiteLocationRaw),
		DeveloperNorm:   DeveloperNorm(proc.DeveloperCompany),
		TitleSignature:  TitleSignature(proc.Title),
		MunicipalityKey: proc.MunicipalityKey,
	}
}

// PlanToken extracts a B-Plan number ("Bebauungsplan Nr. 12/2024") or falls
// back to the largest quoted string that names a plan area.
func PlanToken(text string) string {
	norm := textnorm.Normalize(text).Text

	if m := planNumberPattern.FindStringSubmatch(norm); m != nil {
		token := strings.Trim(m[1], "-/")
		if token != "" && token != "nr" {
			return token
		}
	}

	best := ""
	for _, m := range quotedPattern.FindAllStringSubmatch(norm, -1) {
		candidate := strings.TrimSpace(m[1])
		if len(candidate) <= len(best) {
			continue
		}
		for _, term := range []string{"plan", "gebiet", "bereich", "vorhaben"} {
			if strings.Contains(candidate, term) {
				best = candidate
				break
			}
		}
	}
	return best
}

// ParcelToken canonicalizes a site location into
// "gemarkung=x;flur=3;flurstueck=12". Partial triples still produce a token;
// an empty location yields none.
func ParcelToken(siteLocation string) string {
	if siteLocation == "" {
		return ""
	}
	norm := textnorm.Normalize(siteLocation).Text

	var parts []string
	if m := parcelGemarkung.FindStringSubmatch(norm); m != nil {
		parts = append(parts, "gemarkung="+strings.TrimSpace(m[1]))
	}
	if m := parcelFlur.FindStringSubmatch(norm); m != nil {
		parts = append(parts, "flur="+m[1])
	}
	if m := parcelFlurstueck.FindStringSubmatch(norm); m != nil {
		parts = append(parts, "flurstueck="+m[1])
	}
	return strings.Join(parts, ";")
}

// DeveloperNorm strips legal suffixes and punctuation from a company name.
func DeveloperNorm(company string) string {
	if company == "" {
		return ""
	}
	norm := textnorm.Normalize(company).Text
	for _, suffix := range []string{"gmbh & co. kg", "gmbh & co kg", "gmbh", "ag", "ug", "kg", "gbr", "ohg"} {
		norm = strings.TrimSuffix(strings.TrimSpace(norm), suffix)
	}
	var b strings.Builder
	for _, r := range norm {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleSignature returns the content tokens of a title: length four or more,
// procedural wording and stopwords removed, capped at ten, sorted for stable
// comparison.
func TitleSignature(title string) []string {
	norm := textnorm.Normalize(title).Text
	for _, phrase := range stopPhrases {
		norm = strings.ReplaceAll(norm, phrase, " ")
	}

	var tokens []string
	seen := map[string]bool{}
	for _, tok := range titleTokenPattern.FindAllString(norm, -1) {
		if titleStopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
		if len(tokens) == 10 {
			break
		}
	}
	sort.Strings(tokens)
	return tokens
}

// Jaccard computes set similarity of two token lists.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	inter := 0
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		if setB[t] {
			continue
		}
		setB[t] = true
		if setA[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}
