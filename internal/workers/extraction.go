package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bessradar/bessradar/internal/classify"
	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/extract"
	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/pdftext"
	"github.com/bessradar/bessradar/internal/queue"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// extractionBatch accumulates DAO writes during one extraction job. Nothing
// is flushed until the item is fully processed.
type extractionBatch struct {
	sources   []*models.Source
	documents []*models.Document
}

// HandleExtraction processes one candidate: fetch, extract text, classify,
// persist. Fetch and parse problems mark the candidate, not the job; only
// database errors propagate.
func (w *Workers) HandleExtraction(ctx context.Context, job *queue.Job) error {
	payload, err := models.JobPayloadFromJSON(job.Payload)
	if err != nil {
		return err
	}
	cand, err := w.store.Candidates.Get(payload.CandidateID)
	if err != nil {
		return err
	}
	if cand == nil {
		w.logger.Warn().Str("candidate_id", payload.CandidateID).Msg("candidate vanished before extraction")
		return nil
	}
	if err := w.store.Candidates.UpdateStatus(cand.ID, models.CandidateExtracting); err != nil {
		return err
	}

	var timings models.JobTimings
	var counts models.CrawlCounts
	batch := &extractionBatch{}
	isRIS := cand.DiscoverySource == models.SourceRIS

	texts, fetchErr := w.collectTexts(ctx, cand, isRIS, batch, &timings, &counts)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return w.finishCancelled(cand, &timings, &counts, ctx.Err())
		}
		return w.finishWithFetchError(cand, fetchErr, &timings, &counts)
	}
	fullText := strings.Join(texts, "\n")

	classifyStart := time.Now()
	res := classify.Classify(fullText, cand.Title, cand.Date, cand.DiscoverySource)
	timings.ClassifyMs = msSince(classifyStart)

	valid, skipReason := classify.IsValidProcedure(res, cand.Title, cand.URL, cand.DiscoverySource)
	procedureID := ""
	if valid {
		proc := w.buildProcedure(cand, res, fullText)
		if _, _, err := w.resolver.Resolve(proc); err != nil {
			_ = w.store.Candidates.UpdateStatus(cand.ID, models.CandidateError)
			return fmt.Errorf("resolve procedure: %w", err)
		}
		procedureID = proc.ID
		counts.ProceduresSaved++
	} else {
		counts.ProceduresSkipped++
		w.logger.Info().
			Str("candidate_id", cand.ID).
			Str("title", cand.Title).
			Str("reason", string(skipReason)).
			Msg("candidate rejected")
	}

	for _, src := range batch.sources {
		src.ProcedureID = procedureID
	}

	dbStart := time.Now()
	if err := w.flush(batch); err != nil {
		_ = w.store.Candidates.UpdateStatus(cand.ID, models.CandidateError)
		return err
	}
	timings.DBWriteMs = msSince(dbStart)
	if err := w.mergeStats(payload.RunID, cand, timings, counts, "", ""); err != nil {
		return err
	}

	final := models.CandidateDone
	if !valid {
		final = models.CandidateSkipped
	}
	return w.store.Candidates.UpdateStatus(cand.ID, final)
}

// collectTexts fetches the candidate page and its documents and returns every
// recovered text. A failed candidate-page fetch aborts the item; individual
// document failures only lose that document.
func (w *Workers) collectTexts(ctx context.Context, cand *models.Candidate, isRIS bool, batch *extractionBatch, timings *models.JobTimings, counts *models.CrawlCounts) ([]string, error) {
	var texts []string

	docURLs := append([]string(nil), cand.DocURLs...)
	if isPDFLink(cand.URL) {
		docURLs = append([]string{cand.URL}, docURLs...)
	} else {
		htmlStart := time.Now()
		resp, err := w.client.Get(ctx, cand.URL, fetch.Options{RIS: isRIS, Mode: w.mode})
		timings.FetchHTMLMs += msSince(htmlStart)
		if err != nil {
			return nil, err
		}
		counts.PagesFetched++
		batch.sources = append(batch.sources, sourceRecord(cand, resp))

		if page, err := htmltext.Parse(resp.Body, cand.URL); err == nil {
			texts = append(texts, page.Text)
		}
	}

	seen := map[string]bool{}
	for _, docURL := range docURLs {
		if seen[docURL] {
			continue
		}
		seen[docURL] = true

		pdfStart := time.Now()
		resp, err := w.client.Get(ctx, docURL, fetch.Options{RIS: isRIS, Mode: w.mode, PDFGuard: true})
		timings.FetchPDFMs += msSince(pdfStart)
		if err != nil {
			var fe *fetch.Error
			if errors.As(err, &fe) && fe.Kind == fetch.KindTooLarge {
				counts.PDFsSkipped++
			} else {
				w.logger.Warn().Err(err).Str("url", docURL).Msg("document fetch failed")
			}
			continue
		}
		counts.PDFsDownloaded++
		src := sourceRecord(cand, resp)
		batch.sources = append(batch.sources, src)

		text, doc := w.extractDocument(docURL, resp.Body, src.ID, timings)
		if doc != nil {
			batch.documents = append(batch.documents, doc)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// extractDocument stores the blob and pulls the text layer, going through the
// text cache first.
func (w *Workers) extractDocument(docURL string, body []byte, sourceID string, timings *models.JobTimings) (string, *models.Document) {
	sha := common.SHA256Hex(body)

	if existing, err := w.store.Documents.ByContentSHA(sha); err == nil && existing != nil {
		// Same bytes already processed under another URL.
		return existing.ExtractedText, nil
	}

	res, cached := w.textCache.Get(docURL, len(body))
	if !cached {
		extractStart := time.Now()
		var err error
		res, err = pdftext.Extract(body, w.mode)
		timings.ExtractPDFMs += msSince(extractStart)
		if err != nil {
			w.logger.Warn().Err(err).Str("url", docURL).Msg("pdf text extraction failed")
			return "", nil
		}
		w.textCache.Put(docURL, len(body), res)
	}

	path, err := w.store.Documents.SaveBlob(sha, "pdf", body)
	if err != nil {
		w.logger.Warn().Err(err).Str("sha", sha).Msg("blob write failed")
	}

	doc := &models.Document{
		ID:            common.NewID(),
		SourceID:      sourceID,
		ContentSHA256: sha,
		Bytes:         int64(len(body)),
		MIME:          "application/pdf",
		StoragePath:   path,
		HasTextLayer:  res.HasTextLayer,
		OCRNeeded:     !res.HasTextLayer,
		PageMap:       res.PageMap,
		ExtractedText: res.Text,
	}
	return res.Text, doc
}

// buildProcedure turns a relevant classification into the persisted
// procedure, with every extractable field filled from the full text.
func (w *Workers) buildProcedure(cand *models.Candidate, res classify.Result, fullText string) *models.Procedure {
	seed := w.seeds[cand.MunicipalityKey]
	titleNorm := textnorm.Normalize(cand.Title).Text

	proc := &models.Procedure{
		ID:                common.MakeProcedureID(titleNorm, cand.MunicipalityKey, []string{string(res.ProcedureType), cand.URL}),
		Title:             cand.Title,
		TitleNorm:         titleNorm,
		MunicipalityKey:   cand.MunicipalityKey,
		State:             seed.State,
		County:            seed.County,
		DiscoverySource:   cand.DiscoverySource,
		ProcedureType:     res.ProcedureType,
		LegalBasis:        res.LegalBasis,
		ProjectComponents: res.Components,
		AmbiguityFlag:     res.AmbiguityFlag,
		ReviewRecommended: res.ReviewRecommended,
		Confidence:        res.Confidence,
		BESSScore:         res.BESSScore,
		GridScore:         res.GridScore,
		EvidenceSnippets:  res.EvidenceSnippets,
		DecisionDate:      cand.Date,
	}

	if d, ok := extract.DecisionDate(fullText); ok {
		proc.DecisionDate = &d
	}
	if loc, ok := extract.Location(fullText); ok {
		proc.SiteLocationRaw = loc
	}
	if dev, ok := extract.DeveloperCompany(fullText); ok {
		proc.DeveloperCompany = dev
	}
	if mw, ok := extract.CapacityMW(fullText); ok {
		proc.CapacityMW = mw
	}
	if mwh, ok := extract.CapacityMWh(fullText); ok {
		proc.CapacityMWh = mwh
	}
	if area, ok := extract.LargestArea(fullText); ok {
		proc.AreaHectares = area
	}
	return proc
}

// finishWithFetchError records a failed candidate-page fetch. The job itself
// succeeds; the failure lives in the candidate and the stats row.
func (w *Workers) finishWithFetchError(cand *models.Candidate, fetchErr error, timings *models.JobTimings, counts *models.CrawlCounts) error {
	w.logger.Warn().Err(fetchErr).Str("candidate_id", cand.ID).Str("url", cand.URL).Msg("candidate fetch failed")
	if err := w.mergeStats(cand.RunID, cand, *timings, *counts, fetchErr.Error(), statusOfFetchError(fetchErr)); err != nil {
		return err
	}
	return w.store.Candidates.UpdateStatus(cand.ID, models.CandidateError)
}

// finishCancelled closes out a job interrupted by shutdown: the candidate is
// marked errored and the stats row says so, then the cancellation propagates
// so the pool stops rather than draining the queue.
func (w *Workers) finishCancelled(cand *models.Candidate, timings *models.JobTimings, counts *models.CrawlCounts, cause error) error {
	w.logger.Warn().Str("candidate_id", cand.ID).Msg("extraction cancelled")
	if err := w.mergeStats(cand.RunID, cand, *timings, *counts, "cancelled", models.StatusErrorOther); err != nil {
		return err
	}
	if err := w.store.Candidates.UpdateStatus(cand.ID, models.CandidateError); err != nil {
		return err
	}
	return cause
}

// statusOfFetchError maps a fetch failure onto the stats row's source status.
func statusOfFetchError(err error) models.SourceStatus {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return models.StatusErrorOther
	}
	switch fe.Kind {
	case fetch.KindSSL:
		return models.StatusErrorSSL
	case fetch.KindNetwork, fetch.KindHTTP4xx:
		return models.StatusErrorNetwork
	}
	return models.StatusErrorOther
}

func (w *Workers) flush(batch *extractionBatch) error {
	if err := w.store.Sources.UpsertBatch(batch.sources); err != nil {
		return fmt.Errorf("persist sources: %w", err)
	}
	for _, doc := range batch.documents {
		if err := w.store.Documents.Upsert(doc); err != nil {
			return fmt.Errorf("persist document: %w", err)
		}
	}
	return nil
}

// mergeStats folds this job's counters into the per-(run, municipality,
// source) stats row created by the discovery job. A non-empty status
// overrides the row; an empty one leaves the discovery outcome in place.
func (w *Workers) mergeStats(runID string, cand *models.Candidate, timings models.JobTimings, counts models.CrawlCounts, errMsg string, status models.SourceStatus) error {
	id := statsID(runID, cand.MunicipalityKey, cand.DiscoverySource)
	stats, err := w.store.Stats.Get(id)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &models.CrawlStats{
			ID:              id,
			RunID:           runID,
			MunicipalityKey: cand.MunicipalityKey,
			SourceType:      cand.DiscoverySource,
			SourceStatus:    models.StatusSuccess,
			StartedAt:       time.Now().UTC(),
		}
	}
	if status != "" {
		stats.SourceStatus = status
	}
	stats.Counts.PagesFetched += counts.PagesFetched
	stats.Counts.PDFsDownloaded += counts.PDFsDownloaded
	stats.Counts.PDFsSkipped += counts.PDFsSkipped
	stats.Counts.ProceduresSaved += counts.ProceduresSaved
	stats.Counts.ProceduresSkipped += counts.ProceduresSkipped
	stats.Timings.FetchHTMLMs += timings.FetchHTMLMs
	stats.Timings.FetchPDFMs += timings.FetchPDFMs
	stats.Timings.ExtractPDFMs += timings.ExtractPDFMs
	stats.Timings.ClassifyMs += timings.ClassifyMs
	stats.Timings.DBWriteMs += timings.DBWriteMs
	if errMsg != "" {
		stats.ErrorMessage = errMsg
	}
	stats.FinishedAt = time.Now().UTC()
	return w.store.Stats.Upsert(stats)
}

func sourceRecord(cand *models.Candidate, resp *fetch.Response) *models.Source {
	return &models.Source{
		ID:              common.NewID(),
		SourceURL:       resp.URL,
		RetrievedAt:     time.Now().UTC(),
		HTTPStatus:      resp.StatusCode,
		ETag:            resp.Header.Get("ETag"),
		LastModified:    resp.Header.Get("Last-Modified"),
		DiscoverySource: cand.DiscoverySource,
		DiscoveryPath:   cand.DiscoveryPath,
	}
}

func isPDFLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "getfile") ||
		strings.Contains(lower, "format=pdf")
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
