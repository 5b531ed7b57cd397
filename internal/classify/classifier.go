// Package classify holds the deterministic relevance classifier, the
// prefilter gate, and container detection. Everything here is a pure
// function over normalized text: same input, byte-equal result.
package classify

import (
	"time"

	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// RuleCutoff is the earliest date rule R2 accepts for title-only relevance.
var RuleCutoff = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

const maxEvidenceSnippets = 6
const evidenceWindow = 80

// Result is the full classifier output for one item.
type Result struct {
	IsCandidate       bool
	IsRelevant        bool
	ProcedureType     models.ProcedureType
	LegalBasis        models.LegalBasis
	Components        models.ProjectComponents
	AmbiguityFlag     bool
	ReviewRecommended bool
	Confidence        float64
	BESSScore         float64
	GridScore         float64
	EvidenceSnippets  []string
}

// Classify runs the rule lattice over raw text and title. The discovery
// source only matters for container handling downstream; relevance itself is
// source-independent.
func Classify(textRaw, title string, date *time.Time, source models.DiscoverySource) Result {
	normText := textnorm.Normalize(textRaw)
	normTitle := textnorm.Normalize(title)
	// The matchers tolerate one whitespace inside a term, so a single space
	// here would let a term bridge the text/title boundary. Two newlines are
	// beyond that tolerance.
	combined := normText.Text + "\n\n" + normTitle.Text

	res := Result{
		ProcedureType: models.ProcUnknown,
		LegalBasis:    models.BasisUnknown,
		Components:    models.ComponentsUnclear,
	}

	hasExplicit := keywords.BESSExplicit.Contains(combined)
	hasContainerGrid := keywords.BESSContainerGrid.Contains(combined)
	hasNegative := keywords.NegativeStorage.Contains(combined)

	res.IsCandidate = hasExplicit || hasContainerGrid
	res.BESSScore = bessScore(combined, hasExplicit, hasContainerGrid)
	res.GridScore = gridScore(combined)

	hasProcedure := keywords.PlanningSteps.Contains(combined) ||
		keywords.PlanningStrong.Contains(combined) ||
		keywords.PermitStrong.Contains(combined)

	// R1: explicit BESS term plus any planning or permit signal.
	if hasExplicit && hasProcedure {
		res.IsRelevant = true
	}

	// R2: explicit BESS term in the title, recent or undated.
	if !res.IsRelevant && keywords.BESSExplicit.Contains(normTitle.Text) {
		if date == nil || !date.Before(RuleCutoff) {
			res.IsRelevant = true
		}
	}

	// R3: generic "speicher" with at least two grid/container signals and a
	// procedure term, as long as nothing points at heat/water/data storage.
	if !res.IsRelevant && keywords.Speicher.Contains(combined) && !hasNegative {
		gridSignals := keywords.BESSContainerGrid.Count(combined) +
			keywords.GridStrong.Count(combined) +
			keywords.GridMedium.Count(combined)
		if gridSignals >= 2 && hasProcedure {
			res.IsRelevant = true
			res.AmbiguityFlag = true
		}
	}

	if !res.IsRelevant {
		res.Confidence = confidence(res, hasExplicit, hasNegative, date, combined)
		return res
	}

	res.ProcedureType = tagProcedureType(combined)
	if res.ProcedureType == models.ProcUnknown {
		res.ReviewRecommended = true
	}
	res.LegalBasis = tagLegalBasis(combined)
	res.Components = tagComponents(combined, hasExplicit, hasContainerGrid)
	res.Confidence = confidence(res, hasExplicit, hasNegative, date, combined)
	if res.Confidence >= 0.35 && res.Confidence <= 0.65 {
		res.ReviewRecommended = true
	}
	res.EvidenceSnippets = evidenceSnippets(textRaw, normText, title, normTitle)

	return res
}

// tagProcedureType returns the first matching tag in ladder order.
func tagProcedureType(text string) models.ProcedureType {
	switch {
	case matchAny(text, "aufstellungsbeschluss", "beschluss zur aufstellung", "§ 2 abs. 1 baugb"):
		return models.ProcBPlanAufstellung
	case matchAny(text, "fruehzeitige beteiligung", "§ 3 abs. 1 baugb", "§ 4 abs. 1 baugb"):
		return models.ProcBPlanFruehzeitig
	case matchAny(text, "oeffentliche auslegung", "auslegung", "§ 3 abs. 2 baugb", "§ 4 abs. 2 baugb"):
		return models.ProcBPlanAuslegung
	case matchAny(text, "satzungsbeschluss", "als satzung beschlossen", "§ 10 baugb"):
		return models.ProcBPlanSatzung
	case keywords.PlanningStrong.Contains(text):
		return models.ProcBPlanOther
	case matchAny(text, "bauvorbescheid", "vorbescheid"):
		return models.ProcPermitVorbescheid
	case matchAny(text, "baugenehmigung"):
		return models.ProcPermitGenehmigung
	case matchAny(text, "§36", "§ 36") && matchAny(text, "einvernehmen"):
		return models.ProcPermit36
	case matchAny(text, "§36 baugb", "§ 36 baugb"):
		return models.ProcPermit36
	case matchAny(text, "bauantrag", "bauvoranfrage", "bauvorantrag", "antrag auf errichtung", "standortgemeinde"):
		return models.ProcPermitOther
	case matchAny(text, "kenntnisnahme") && matchAny(text, "vorhaben", "bauantrag"):
		return models.ProcPermitOther
	}
	return models.ProcUnknown
}

// tagLegalBasis tags §35/§34/§36; precedence §35 > §34 > §36. Patterns
// tolerate the broken whitespace RIS PDFs produce.
func tagLegalBasis(text string) models.LegalBasis {
	switch {
	case matchAny(text, "§ 35 baugb", "§35 baugb", "aussenbereich", "privilegiertes vorhaben"):
		return models.Basis35
	case matchAny(text, "§ 34 baugb", "§34 baugb", "innenbereich"):
		return models.Basis34
	case matchAny(text, "§ 36 baugb", "§36 baugb", "§36", "§ 36"):
		return models.Basis36
	}
	return models.BasisUnknown
}

func tagComponents(text string, hasExplicit, hasContainerGrid bool) models.ProjectComponents {
	hasPV := matchAny(text, "photovoltaik", "pv", "solarpark")
	hasWind := matchAny(text, "windenergie", "windpark")
	hasBESS := hasExplicit || keywords.Speicher.Contains(text)
	if hasContainerGrid && (keywords.GridStrong.Contains(text) || keywords.GridMedium.Contains(text)) {
		hasBESS = true
	}
	switch {
	case hasPV && hasBESS:
		return models.ComponentsPVBESS
	case hasWind && hasBESS:
		return models.ComponentsWindBESS
	case hasBESS:
		return models.ComponentsBESSOnly
	}
	return models.ComponentsUnclear
}

// confidence applies the additive score of §4.3 step 7, clamped to [0,1].
func confidence(res Result, hasExplicit, hasNegative bool, date *time.Time, text string) float64 {
	score := 0.0
	if hasExplicit {
		score += 0.55
	}
	if keywords.PlanningSteps.Contains(text) || keywords.PermitStrong.Contains(text) {
		score += 0.25
	}
	if keywords.GridStrong.Contains(text) {
		score += 0.10
	}
	if hasNegative && !hasExplicit {
		score -= 0.60
	}
	if res.AmbiguityFlag {
		score -= 0.25
	}
	if date == nil {
		score -= 0.15
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func bessScore(text string, hasExplicit, hasContainerGrid bool) float64 {
	score := 0.0
	if hasExplicit {
		score += 0.55
	}
	if hasContainerGrid {
		score += 0.20
	}
	if keywords.Speicher.Contains(text) && keywords.EnergyContext.Contains(text) {
		score += 0.15
	}
	if score > 1 {
		return 1
	}
	return score
}

func gridScore(text string) float64 {
	score := 0.30*float64(keywords.GridStrong.Count(text)) +
		0.15*float64(keywords.GridMedium.Count(text))
	if score > 1 {
		return 1
	}
	return score
}

// evidenceSnippets cuts up to six ±80 char windows around the earliest
// occurrence of each matched strong term, sliced from the original text so
// umlauts and casing survive.
func evidenceSnippets(textRaw string, normText textnorm.Normalized, title string, normTitle textnorm.Normalized) []string {
	strongSets := []*keywords.Set{
		keywords.BESSExplicit,
		keywords.PlanningSteps,
		keywords.PlanningStrong,
		keywords.PermitStrong,
		keywords.GridStrong,
	}

	var snippets []string
	seen := make(map[string]bool)
	for _, set := range strongSets {
		matches := set.FirstMatches(normText.Text)
		source, norm := textRaw, normText
		if len(matches) == 0 {
			matches = set.FirstMatches(normTitle.Text)
			source, norm = title, normTitle
		}
		for _, m := range matches {
			if len(snippets) >= maxEvidenceSnippets {
				return snippets
			}
			start := m.Start - evidenceWindow
			end := m.End + evidenceWindow
			snippet := norm.OriginalSlice(source, start, end)
			if snippet == "" || seen[snippet] {
				continue
			}
			seen[snippet] = true
			snippets = append(snippets, snippet)
		}
	}
	return snippets
}

var tolerantCache = map[string]*keywords.Set{}

// matchAny checks ad-hoc terms with the same whitespace tolerance as the
// frozen sets. The tiny cache keeps regex compilation out of the hot path.
func matchAny(text string, terms ...string) bool {
	for _, t := range terms {
		set, ok := tolerantCache[t]
		if !ok {
			set = keywords.NewSet(t, t)
			tolerantCache[t] = set
		}
		if set.Contains(text) {
			return true
		}
	}
	return false
}
