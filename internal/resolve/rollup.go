package resolve

import (
	"strings"
	"time"

	"github.com/bessradar/bessradar/internal/models"
)

// legalBasisRank orders §35 ≻ §34 ≻ §36 ≻ unknown for the rollup.
var legalBasisRank = map[models.LegalBasis]int{
	models.Basis35:      3,
	models.Basis34:      2,
	models.Basis36:      1,
	models.BasisUnknown: 0,
}

// Recompute rebuilds every rollup field of a project from its linked
// procedures. The function is idempotent: running it twice over the same set
// yields the same project state, regardless of link order.
func Recompute(project *models.ProjectEntity, procs []*models.Procedure) {
	if len(procs) == 0 {
		return
	}

	maturity := models.StageDiscovered
	basis := models.BasisUnknown
	components := models.ComponentsUnclear
	maxConfidence := 0.0
	needsReview := false
	var capacityMW, capacityMWh, area float64
	var firstSeen, lastSeen *time.Time
	developerCounts := map[string]int{}
	longestTitle := ""
	bestLocation := ""

	for _, p := range procs {
		if stage := models.MaturityOf(p.ProcedureType); stage.Rank() > maturity.Rank() {
			maturity = stage
		}
		if legalBasisRank[p.LegalBasis] > legalBasisRank[basis] {
			basis = p.LegalBasis
		}
		if components == models.ComponentsUnclear && p.ProjectComponents != models.ComponentsUnclear {
			components = p.ProjectComponents
		}
		if p.Confidence > maxConfidence {
			maxConfidence = p.Confidence
		}
		needsReview = needsReview || p.ReviewRecommended
		if p.CapacityMW > capacityMW {
			capacityMW = p.CapacityMW
		}
		if p.CapacityMWh > capacityMWh {
			capacityMWh = p.CapacityMWh
		}
		if p.AreaHectares > area {
			area = p.AreaHectares
		}
		if p.DeveloperCompany != "" {
			developerCounts[p.DeveloperCompany]++
		}
		if len(p.Title) > len(longestTitle) {
			longestTitle = p.Title
		}
		if better := betterLocation(bestLocation, p.SiteLocationRaw); better != bestLocation {
			bestLocation = better
		}

		seen := p.DecisionDate
		if seen == nil {
			created := p.CreatedAt
			seen = &created
		}
		if firstSeen == nil || seen.Before(*firstSeen) {
			d := *seen
			firstSeen = &d
		}
		if lastSeen == nil || seen.After(*lastSeen) {
			d := *seen
			lastSeen = &d
		}
	}

	project.MaturityStage = maturity
	project.LegalBasisBest = basis
	project.ComponentsBest = components
	project.MaxConfidence = maxConfidence
	project.NeedsReview = needsReview
	project.CapacityMWBest = capacityMW
	project.CapacityMWhBest = capacityMWh
	project.AreaHectaresBest = area
	project.FirstSeenDate = firstSeen
	project.LastSeenDate = lastSeen
	project.SiteLocationBest = bestLocation
	project.DeveloperBest = mostFrequent(developerCounts)

	if project.PlanToken != "" {
		project.CanonicalProjectName = project.PlanToken
	} else {
		project.CanonicalProjectName = longestTitle
	}
}

// betterLocation prefers a location carrying the full parcel triple, then the
// longer string.
func betterLocation(current, candidate string) string {
	if candidate == "" {
		return current
	}
	curParcel := ParcelToken(current)
	candParcel := ParcelToken(candidate)
	curComplete := parcelComplete(curParcel)
	candComplete := parcelComplete(candParcel)
	if candComplete && !curComplete {
		return candidate
	}
	if curComplete && !candComplete {
		return current
	}
	if len(candidate) > len(current) {
		return candidate
	}
	return current
}

func parcelComplete(token string) bool {
	return token != "" && strings.Count(token, ";") == 2
}

func mostFrequent(counts map[string]int) string {
	best, bestCount := "", 0
	for name, n := range counts {
		if n > bestCount || (n == bestCount && name < best) {
			best, bestCount = name, n
		}
	}
	return best
}
