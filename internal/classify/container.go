package classify

import (
	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// SkipReason says why an item was rejected as a procedure. Values are the
// stable grep-able log tokens.
type SkipReason string

const (
	SkipNone                  SkipReason = ""
	SkipContainer             SkipReason = "SKIP_CONTAINER"
	SkipNoProcedureSignal     SkipReason = "SKIP_NO_PROCEDURE_SIGNAL"
	SkipLowConfidenceNoSignal SkipReason = "SKIP_LOW_CONFIDENCE_NO_SIGNAL"
)

// IsContainer reports whether title/URL look like a wrapper artifact (an
// Amtsblatt issue TOC, a Bekanntmachungsblatt) rather than a single
// procedure item.
func IsContainer(title, url string) bool {
	titleNorm := textnorm.Normalize(title).Text
	urlNorm := textnorm.Normalize(url).Text
	return keywords.ContainerTitle.Contains(titleNorm) ||
		keywords.ContainerTitle.Contains(urlNorm)
}

// IsValidProcedure decides whether a classified item becomes a Procedure row
// or stays an audit-only Source. Containers are rejected unless the item is
// relevant with a direct BESS signal, or it came from a RIS agenda carrying a
// privileged term (Einvernehmen decisions hide inside wrapper titles there).
func IsValidProcedure(res Result, title, url string, source models.DiscoverySource) (bool, SkipReason) {
	if IsContainer(title, url) {
		if res.IsRelevant && res.BESSScore > 0 {
			return true, SkipNone
		}
		if source == models.SourceRIS {
			titleNorm := textnorm.Normalize(title).Text
			if keywords.PrivilegedAgenda.Contains(titleNorm) {
				return true, SkipNone
			}
		}
		return false, SkipContainer
	}
	if !res.IsRelevant {
		if res.IsCandidate {
			return false, SkipLowConfidenceNoSignal
		}
		return false, SkipNoProcedureSignal
	}
	return true, SkipNone
}
