package classify

import (
	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// threshold entry per discovery source, by crawl mode.
type thresholds struct {
	fast float64
	deep float64
}

var prefilterThresholds = map[models.DiscoverySource]thresholds{
	models.SourceRIS:              {fast: 0.35, deep: 0.20},
	models.SourceAmtsblatt:        {fast: 0.50, deep: 0.30},
	models.SourceMunicipalWebsite: {fast: 0.60, deep: 0.50},
}

var defaultThresholds = thresholds{fast: 0.60, deep: 0.30}

// Threshold returns the prefilter cut for a source and crawl mode.
func Threshold(source models.DiscoverySource, mode models.CrawlMode) float64 {
	t, ok := prefilterThresholds[source]
	if !ok {
		t = defaultThresholds
	}
	if mode == models.ModeDeep {
		return t.deep
	}
	return t.fast
}

// ShouldExtract scores a candidate from title and URL alone and decides
// whether it is worth an extraction job. Titles are the cheap signal; the
// full text is never fetched here.
func ShouldExtract(title, url string, source models.DiscoverySource, mode models.CrawlMode) (float64, bool) {
	titleNorm := textnorm.Normalize(title).Text
	urlNorm := textnorm.Normalize(url).Text

	score := 0.0
	if keywords.BESSExplicit.Contains(titleNorm) {
		score += 0.6
	}
	if hasProcedureTerm(titleNorm) {
		score += 0.3
	}
	if hasProcedureTerm(urlNorm) {
		score += 0.2
	}
	if keywords.ContainerTitle.Contains(titleNorm) {
		score -= 0.7
	}
	return score, score >= Threshold(source, mode)
}

func hasProcedureTerm(text string) bool {
	return keywords.PlanningSteps.Contains(text) ||
		keywords.PlanningStrong.Contains(text) ||
		keywords.PermitStrong.Contains(text)
}
