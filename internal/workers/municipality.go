package workers

import (
	"context"
	"fmt"

	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/queue"
)

// HandleMunicipality fans one municipality out into one discovery job per
// source.
// Site-driven discovery runs here once so the RIS and gazette jobs start with
// ranked entry points instead of re-crawling the website.
func (w *Workers) HandleMunicipality(ctx context.Context, job *queue.Job) error {
	payload, err := models.JobPayloadFromJSON(job.Payload)
	if err != nil {
		return err
	}
	seed, ok := w.seeds[payload.MunicipalityKey]
	if !ok {
		return fmt.Errorf("unknown municipality %s", payload.MunicipalityKey)
	}

	links, diag := w.site.Discover(ctx, seed.OfficialWebsiteURL)
	w.logger.Info().
		Str("municipality", seed.Name).
		Str("reason", string(diag.ReasonCode)).
		Int("ris_links", len(links.RIS)).
		Int("gazette_links", len(links.Gazette)).
		Msg("site discovery finished")

	risEntry := ""
	if len(links.RIS) > 0 {
		risEntry = links.RIS[0].URL
	}
	gazetteEntry := ""
	if len(links.Gazette) > 0 {
		gazetteEntry = links.Gazette[0].URL
	}

	fanout := []struct {
		jobType models.JobType
		entry   string
	}{
		{models.JobTypeDiscoveryRIS, risEntry},
		{models.JobTypeDiscoveryGazette, gazetteEntry},
		{models.JobTypeDiscoveryMunicipal, ""},
		{models.JobTypeDiscoveryPortal, seed.PortalURL},
	}
	for _, f := range fanout {
		next := &models.JobPayload{
			Type:             f.jobType,
			RunID:            payload.RunID,
			MunicipalityKey:  seed.Key,
			MunicipalityName: seed.Name,
			Entrypoint:       f.entry,
			Mode:             w.mode,
		}
		if _, err := w.queue.Enqueue(payload.RunID, f.jobType, seed.Key, next); err != nil {
			return fmt.Errorf("enqueue %s for %s: %w", f.jobType, seed.Key, err)
		}
	}
	return nil
}
