// Package app wires configuration, storage, the HTTP client, the job queue
// and the workers into a runnable crawler.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/export"
	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/queue"
	"github.com/bessradar/bessradar/internal/storage"
	"github.com/bessradar/bessradar/internal/workers"
)

// App holds every component of the crawler.
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Store   *storage.Manager
	Client  *fetch.Client
	Queue   *queue.Queue
	Workers *workers.Workers
	Seeds   []models.MunicipalitySeed
}

// New loads the seeds, opens the store and wires the pipeline.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	seeds, err := common.LoadSeeds(cfg.Seeds.Path)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("seed file %s contains no municipalities", cfg.Seeds.Path)
	}
	if cfg.State != "" {
		seeds = filterByState(seeds, cfg.State)
		if len(seeds) == 0 {
			return nil, fmt.Errorf("no municipalities in state %s", cfg.State)
		}
	}

	store, err := storage.NewManager(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.Crawler, logger)
	q := queue.New(store.DB.Store(), logger)
	w := workers.New(cfg, store, q, client, seeds, logger)

	logger.Info().
		Str("mode", cfg.Mode).
		Str("state", cfg.State).
		Int("municipalities", len(seeds)).
		Msg("application initialized")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Client:  client,
		Queue:   q,
		Workers: w,
		Seeds:   seeds,
	}, nil
}

// RunCrawl executes one full crawl run: one municipality job per seed, then
// the worker pool until the queue drains or the context is cancelled.
func (a *App) RunCrawl(ctx context.Context) (string, error) {
	runID := uuid.New().String()
	mode, _ := models.ParseCrawlMode(a.Config.Mode)

	for _, seed := range a.Seeds {
		payload := &models.JobPayload{
			Type:             models.JobTypeMunicipality,
			RunID:            runID,
			MunicipalityKey:  seed.Key,
			MunicipalityName: seed.Name,
			Mode:             mode,
		}
		if _, err := a.Queue.Enqueue(runID, models.JobTypeMunicipality, seed.Key, payload); err != nil {
			return runID, fmt.Errorf("enqueue municipality %s: %w", seed.Key, err)
		}
	}
	a.Logger.Info().
		Str("run_id", runID).
		Int("municipalities", len(a.Seeds)).
		Msg("crawl run started")

	pool := queue.NewPool(a.Queue, a.Config.Queue.Concurrency, a.Config.Queue.PollInterval, a.Logger)
	a.Workers.Register(pool)
	if err := pool.Run(ctx, runID); err != nil {
		return runID, err
	}

	a.logRunSummary(runID)
	return runID, nil
}

// RunScheduled re-runs the crawl on the configured cron expression until the
// context is cancelled. The initial run happens immediately.
func (a *App) RunScheduled(ctx context.Context) error {
	if _, err := a.RunCrawl(ctx); err != nil {
		return err
	}

	c := cron.New()
	_, err := c.AddFunc(a.Config.Schedule.Cron, func() {
		if _, err := a.RunCrawl(ctx); err != nil && ctx.Err() == nil {
			a.Logger.Error().Err(err).Msg("scheduled crawl run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", a.Config.Schedule.Cron, err)
	}
	c.Start()
	a.Logger.Info().Str("cron", a.Config.Schedule.Cron).Msg("schedule active")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

// Export writes the project register workbook.
func (a *App) Export(path string) error {
	return export.NewExporter(a.Store, a.Logger).Write(path)
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

func (a *App) logRunSummary(runID string) {
	stats, err := a.Store.Stats.ByRun(runID)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("failed to load run stats")
		return
	}
	var pages, candidates, saved int
	byStatus := map[models.SourceStatus]int{}
	for _, s := range stats {
		pages += s.Counts.PagesFetched
		candidates += s.Counts.CandidatesFound
		saved += s.Counts.ProceduresSaved
		byStatus[s.SourceStatus]++
	}
	a.Logger.Info().
		Str("run_id", runID).
		Int("sources", len(stats)).
		Int("pages_fetched", pages).
		Int("candidates", candidates).
		Int("procedures_saved", saved).
		Int("sources_ok", byStatus[models.StatusSuccess]).
		Msg("crawl run finished")
}

func filterByState(seeds []models.MunicipalitySeed, state string) []models.MunicipalitySeed {
	var out []models.MunicipalitySeed
	for _, s := range seeds {
		if s.State == state {
			out = append(out, s)
		}
	}
	return out
}
