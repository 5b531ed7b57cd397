package discover

import (
	"context"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/models"
)

// spiderAnchorTerms marks links worth following on a municipality website.
var spiderAnchorTerms = []string{
	"bauen", "planung", "bebauungsplan", "bauleitplanung", "b-plan",
	"stadtplanung", "bekanntmachung", "satzung", "verordnung", "amtliche",
	"oeffentlich", "öffentlich", "verfahren", "beteiligung", "auslegung",
	"aufstellung", "bauvorbescheid", "baugenehmigung", "bauantrag",
	"bauausschuss", "planungsausschuss", "gemeindevertretung",
}

// fallbackPaths are probed when the spider finds nothing to follow.
var fallbackPaths = []string{
	"/bauen",
	"/bauleitplanung",
	"/bekanntmachungen",
	"/rathaus/bekanntmachungen",
	"/aktuelles",
}

const municipalPageLimit = 20

// MunicipalAdapter spiders a municipality website for planning and
// announcement pages.
type MunicipalAdapter struct {
	client *fetch.Client
	logger arbor.ILogger
}

func NewMunicipalAdapter(client *fetch.Client, logger arbor.ILogger) *MunicipalAdapter {
	return &MunicipalAdapter{client: client, logger: logger}
}

// Discover follows same-host links whose anchors carry planning vocabulary,
// depth <= 2, and emits every matching page and PDF as an item.
func (a *MunicipalAdapter) Discover(ctx context.Context, seed models.MunicipalitySeed) *Result {
	diag := newDiagnostics(models.MethodSiteDriven)
	if seed.OfficialWebsiteURL == "" {
		return &Result{Diagnostics: diag.finish(0, false)}
	}

	items, sawContent := a.spider(ctx, seed.OfficialWebsiteURL, diag)
	if len(items) == 0 {
		diag.method = models.MethodPatternGuessing
		items = append(items, a.probeFallbackPaths(ctx, seed.OfficialWebsiteURL, diag)...)
	}
	return &Result{Items: items, Diagnostics: diag.finish(len(items), sawContent)}
}

func (a *MunicipalAdapter) spider(ctx context.Context, websiteURL string, diag *diagnostics) ([]Item, bool) {
	seedHost := hostOf(websiteURL)
	seen := map[string]bool{}

	type frontierPage struct {
		url   string
		path  string
		depth int
	}
	frontier := []frontierPage{{websiteURL, "homepage", 0}}

	var items []Item
	fetched := 0
	sawContent := false
	for len(frontier) > 0 && fetched < municipalPageLimit {
		page := frontier[0]
		frontier = frontier[1:]
		if seen[page.url] || !sameHost(seedHost, page.url) {
			continue
		}
		seen[page.url] = true

		diag.attempt(page.url)
		resp, err := a.client.Get(ctx, page.url, fetch.Options{})
		if err != nil {
			diag.fail(page.url, err)
			continue
		}
		fetched++
		sawContent = true

		parsed, err := htmltext.Parse(resp.Body, page.url)
		if err != nil {
			continue
		}

		for _, link := range parsed.Links {
			if !anchorMatches(link) {
				continue
			}
			if isPDFURL(link.URL) {
				items = append(items, Item{
					Title:         link.Anchor,
					URL:           link.URL,
					DocURLs:       []string{link.URL},
					DiscoveryPath: "website > " + page.path,
				})
				continue
			}
			items = append(items, Item{
				Title:         link.Anchor,
				URL:           link.URL,
				DiscoveryPath: "website > " + page.path,
			})
			if page.depth < siteDepthMax && sameHost(seedHost, link.URL) {
				frontier = append(frontier, frontierPage{link.URL, page.path + " > " + link.Anchor, page.depth + 1})
			}
		}
	}
	return items, sawContent
}

// probeFallbackPaths tries the usual section paths directly.
func (a *MunicipalAdapter) probeFallbackPaths(ctx context.Context, websiteURL string, diag *diagnostics) []Item {
	base, err := url.Parse(websiteURL)
	if err != nil {
		return nil
	}

	var items []Item
	for _, path := range fallbackPaths {
		probe := base.Scheme + "://" + base.Host + path
		diag.attempt(probe)
		resp, err := a.client.Get(ctx, probe, fetch.Options{})
		if err != nil {
			diag.fail(probe, err)
			continue
		}
		parsed, err := htmltext.Parse(resp.Body, probe)
		if err != nil {
			continue
		}
		for _, link := range parsed.Links {
			if !anchorMatches(link) {
				continue
			}
			item := Item{
				Title:         link.Anchor,
				URL:           link.URL,
				DiscoveryPath: "website > fallback " + path,
			}
			if isPDFURL(link.URL) {
				item.DocURLs = []string{link.URL}
			}
			items = append(items, item)
		}
	}
	return items
}

func anchorMatches(link htmltext.Link) bool {
	anchor := strings.ToLower(link.Anchor)
	target := strings.ToLower(link.URL)
	for _, term := range spiderAnchorTerms {
		if strings.Contains(anchor, term) || strings.Contains(target, term) {
			return true
		}
	}
	return false
}
