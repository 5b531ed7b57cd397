package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bessradar/bessradar/internal/classify"
	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/discover"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/queue"
)

// HandleDiscovery runs one source adapter for one municipality. Adapter
// failures are diagnostics, never job failures; only database writes can fail
// the job.
func (w *Workers) HandleDiscovery(ctx context.Context, job *queue.Job) error {
	payload, err := models.JobPayloadFromJSON(job.Payload)
	if err != nil {
		return err
	}
	seed, ok := w.seeds[payload.MunicipalityKey]
	if !ok {
		return fmt.Errorf("unknown municipality %s", payload.MunicipalityKey)
	}

	source := sourceOfJobType(payload.Type)
	started := time.Now().UTC()

	var result *discover.Result
	switch payload.Type {
	case models.JobTypeDiscoveryRIS:
		result = w.ris.Discover(ctx, seed, payload.Entrypoint)
	case models.JobTypeDiscoveryGazette:
		result = w.gazette.Discover(ctx, seed, payload.Entrypoint)
	case models.JobTypeDiscoveryMunicipal:
		result = w.municipal.Discover(ctx, seed)
	case models.JobTypeDiscoveryPortal:
		result = w.portal.Discover(ctx, seed, payload.Entrypoint)
	default:
		return fmt.Errorf("not a discovery job type: %s", payload.Type)
	}

	candidates := make([]*models.Candidate, 0, len(result.Items))
	enqueued := 0
	for _, item := range result.Items {
		score, passes := classify.ShouldExtract(item.Title, item.URL, source, w.mode)
		status := models.CandidateSkipped
		if passes {
			status = models.CandidatePending
		}
		candidates = append(candidates, &models.Candidate{
			ID:              common.NewID(),
			RunID:           payload.RunID,
			MunicipalityKey: seed.Key,
			DiscoverySource: source,
			DiscoveryPath:   item.DiscoveryPath,
			Title:           item.Title,
			URL:             item.URL,
			Date:            item.Date,
			DocURLs:         item.DocURLs,
			PrefilterScore:  score,
			Status:          status,
		})
	}
	if err := w.store.Candidates.UpsertBatch(candidates); err != nil {
		return fmt.Errorf("persist candidates: %w", err)
	}
	for _, c := range candidates {
		if c.Status != models.CandidatePending {
			continue
		}
		next := &models.JobPayload{
			Type:             models.JobTypeExtraction,
			RunID:            payload.RunID,
			MunicipalityKey:  seed.Key,
			MunicipalityName: seed.Name,
			Mode:             w.mode,
			CandidateID:      c.ID,
		}
		if _, err := w.queue.Enqueue(payload.RunID, models.JobTypeExtraction, seed.Key, next); err != nil {
			return fmt.Errorf("enqueue extraction: %w", err)
		}
		enqueued++
	}

	diag := result.Diagnostics
	stats := &models.CrawlStats{
		ID:              statsID(payload.RunID, seed.Key, source),
		RunID:           payload.RunID,
		MunicipalityKey: seed.Key,
		SourceType:      source,
		Counts: models.CrawlCounts{
			PagesFetched:    len(diag.AttemptedURLs) - len(diag.FailedURLs),
			CandidatesFound: len(candidates),
		},
		SourceStatus: statusOfReason(diag.ReasonCode),
		Diagnostics:  &diag,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	if err := w.store.Stats.Upsert(stats); err != nil {
		return fmt.Errorf("persist crawl stats: %w", err)
	}

	w.logger.Info().
		Str("municipality", seed.Name).
		Str("source", string(source)).
		Str("reason", string(diag.ReasonCode)).
		Int("candidates", len(candidates)).
		Int("extraction_jobs", enqueued).
		Msg("discovery finished")
	w.logMunicipalitySummary(payload.RunID, seed)
	return nil
}

// logMunicipalitySummary emits the rolling per-municipality line after each
// discovery job: the status of every source crawled so far in the run plus
// the municipality's cumulative procedure count.
func (w *Workers) logMunicipalitySummary(runID string, seed models.MunicipalitySeed) {
	rows, err := w.store.Stats.ByMunicipality(runID, seed.Key)
	if err != nil {
		w.logger.Warn().Err(err).Str("municipality", seed.Key).Msg("municipality summary skipped")
		return
	}
	procedures, err := w.store.Procedures.ByMunicipality(seed.Key)
	if err != nil {
		w.logger.Warn().Err(err).Str("municipality", seed.Key).Msg("municipality summary skipped")
		return
	}

	event := w.logger.Info().
		Str("municipality", seed.Name).
		Str("key", seed.Key)
	for _, row := range rows {
		event = event.Str(strings.ToLower(string(row.SourceType)), string(row.SourceStatus))
	}
	event.Int("procedures_saved", len(procedures)).Msg("MUNICIPALITY_SUMMARY")
}

func sourceOfJobType(t models.JobType) models.DiscoverySource {
	switch t {
	case models.JobTypeDiscoveryRIS:
		return models.SourceRIS
	case models.JobTypeDiscoveryGazette:
		return models.SourceAmtsblatt
	case models.JobTypeDiscoveryMunicipal:
		return models.SourceMunicipalWebsite
	case models.JobTypeDiscoveryPortal:
		return models.SourceDiPlanung
	}
	return models.SourceMunicipalWebsite
}

func statusOfReason(reason models.ReasonCode) models.SourceStatus {
	switch reason {
	case models.ReasonFound, models.ReasonFoundButEmpty:
		return models.StatusSuccess
	case models.ReasonNoSeedURL:
		return models.StatusNotRun
	case models.ReasonSSLBlocked:
		return models.StatusErrorSSL
	case models.ReasonAllURLs404:
		return models.StatusErrorNetwork
	}
	return models.StatusErrorOther
}
