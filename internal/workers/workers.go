// Package workers wires the queue to the pipeline: a municipality job fans
// out into discovery jobs, discovery jobs persist candidates and enqueue
// extraction jobs, extraction jobs fetch, classify and resolve.
package workers

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/discover"
	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/pdftext"
	"github.com/bessradar/bessradar/internal/queue"
	"github.com/bessradar/bessradar/internal/resolve"
	"github.com/bessradar/bessradar/internal/storage"
)

// Workers bundles every dependency the job handlers share.
type Workers struct {
	mode      models.CrawlMode
	store     *storage.Manager
	queue     *queue.Queue
	client    *fetch.Client
	resolver  *resolve.Resolver
	textCache *pdftext.Cache
	site      *discover.SiteDiscovery
	ris       *discover.RISAdapter
	gazette   *discover.GazetteAdapter
	municipal *discover.MunicipalAdapter
	portal    *discover.PortalAdapter
	seeds     map[string]models.MunicipalitySeed
	logger    arbor.ILogger
}

// New builds the handler set.
func New(cfg *common.Config, store *storage.Manager, q *queue.Queue, client *fetch.Client, seeds []models.MunicipalitySeed, logger arbor.ILogger) *Workers {
	mode, _ := models.ParseCrawlMode(cfg.Mode)
	seedIndex := make(map[string]models.MunicipalitySeed, len(seeds))
	for _, s := range seeds {
		seedIndex[s.Key] = s
	}
	return &Workers{
		mode:      mode,
		store:     store,
		queue:     q,
		client:    client,
		resolver:  resolve.NewResolver(store, logger),
		textCache: pdftext.NewCache(cfg.Crawler.TextCacheBase),
		site:      discover.NewSiteDiscovery(client, logger),
		ris:       discover.NewRISAdapter(client, logger),
		gazette:   discover.NewGazetteAdapter(client, logger),
		municipal: discover.NewMunicipalAdapter(client, logger),
		portal:    discover.NewPortalAdapter(client, logger),
		seeds:     seedIndex,
		logger:    logger,
	}
}

// Register installs all handlers on a pool.
func (w *Workers) Register(pool *queue.Pool) {
	pool.Register(models.JobTypeMunicipality, w.HandleMunicipality)
	pool.Register(models.JobTypeDiscoveryRIS, w.HandleDiscovery)
	pool.Register(models.JobTypeDiscoveryGazette, w.HandleDiscovery)
	pool.Register(models.JobTypeDiscoveryMunicipal, w.HandleDiscovery)
	pool.Register(models.JobTypeDiscoveryPortal, w.HandleDiscovery)
	pool.Register(models.JobTypeExtraction, w.HandleExtraction)
}

// statsID gives every (run, municipality, source) tuple a stable stats
// record, so discovery and extraction update the same row.
func statsID(runID, municipalityKey string, source models.DiscoverySource) string {
	h := sha256.Sum256([]byte(runID + "|" + municipalityKey + "|" + string(source)))
	return hex.EncodeToString(h[:])[:32]
}
