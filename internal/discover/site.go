package discover

import (
	"context"
	"encoding/xml"
	"net/url"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/models"
)

const (
	sitePageLimit = 20
	siteDepthMax  = 2
)

// RankedLink is a classified link with its signal strength. Domain matches
// outrank path matches.
type RankedLink struct {
	URL   string
	Score int
}

// SiteLinks is the outcome of site-driven discovery on one municipality
// website.
type SiteLinks struct {
	RIS     []RankedLink
	Gazette []RankedLink
}

var risDomainSignals = []string{"allris", "sessionnet", "ratsinfo", "ris"}
var risPathSignals = []string{"/ris", "/sessionnet", "/si0100", "/to0100", "/gremien", "/sitzung"}
var gazettePathSignals = []string{"/amtsblatt", "/bekanntmachung", "/veroeffentlichung", "/auslegung", "/bauleitplanung"}

// SiteDiscovery crawls a municipality website homepage, sitemap and imprint
// to locate the RIS and Amtsblatt entry points.
type SiteDiscovery struct {
	client *fetch.Client
	logger arbor.ILogger
}

func NewSiteDiscovery(client *fetch.Client, logger arbor.ILogger) *SiteDiscovery {
	return &SiteDiscovery{client: client, logger: logger}
}

// Discover crawls up to sitePageLimit same-host pages at depth <= 2 and
// classifies every anchor.
func (s *SiteDiscovery) Discover(ctx context.Context, websiteURL string) (*SiteLinks, models.DiscoveryDiagnostics) {
	diag := newDiagnostics(models.MethodSiteDriven)
	links := &SiteLinks{}
	if websiteURL == "" {
		return links, diag.finish(0, false)
	}

	seedHost := hostOf(websiteURL)
	seen := map[string]bool{}
	risSeen := map[string]int{}
	gazetteSeen := map[string]int{}

	type frontierPage struct {
		url   string
		depth int
	}
	frontier := []frontierPage{{websiteURL, 0}}
	if locs := s.sitemapURLs(ctx, websiteURL, diag); len(locs) > 0 {
		for _, loc := range locs {
			frontier = append(frontier, frontierPage{loc, 1})
		}
	}

	fetched := 0
	sawContent := false
	for len(frontier) > 0 && fetched < sitePageLimit {
		page := frontier[0]
		frontier = frontier[1:]
		if seen[page.url] || !sameHost(seedHost, page.url) {
			continue
		}
		seen[page.url] = true

		diag.attempt(page.url)
		resp, err := s.client.Get(ctx, page.url, fetch.Options{})
		if err != nil {
			diag.fail(page.url, err)
			continue
		}
		fetched++
		sawContent = true

		parsed, err := htmltext.Parse(resp.Body, page.url)
		if err != nil {
			diag.fail(page.url, err)
			continue
		}

		for _, link := range parsed.Links {
			if score := risScore(link.URL); score > 0 && score > risSeen[link.URL] {
				risSeen[link.URL] = score
			}
			if score := gazetteScore(link.URL); score > 0 && score > gazetteSeen[link.URL] {
				gazetteSeen[link.URL] = score
			}
			if page.depth < siteDepthMax && sameHost(seedHost, link.URL) && followForSite(link) {
				frontier = append(frontier, frontierPage{link.URL, page.depth + 1})
			}
		}
	}

	links.RIS = ranked(risSeen)
	links.Gazette = ranked(gazetteSeen)
	return links, diag.finish(len(links.RIS)+len(links.Gazette), sawContent)
}

// sitemapURLs reads sitemap.xml when present; absence is not a failure.
func (s *SiteDiscovery) sitemapURLs(ctx context.Context, websiteURL string, diag *diagnostics) []string {
	base, err := url.Parse(websiteURL)
	if err != nil {
		return nil
	}
	sitemapURL := base.Scheme + "://" + base.Host + "/sitemap.xml"

	diag.attempt(sitemapURL)
	resp, err := s.client.Get(ctx, sitemapURL, fetch.Options{})
	if err != nil {
		return nil
	}

	var sitemap struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	if err := xml.Unmarshal(resp.Body, &sitemap); err != nil {
		return nil
	}
	var out []string
	for _, u := range sitemap.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc != "" {
			out = append(out, loc)
		}
		if len(out) == sitePageLimit {
			break
		}
	}
	return out
}

// followForSite limits spidering to navigation likely to reach the RIS or
// gazette section: the imprint (RIS links commonly sit in the footer nav) and
// council/administration pages.
func followForSite(link htmltext.Link) bool {
	anchor := strings.ToLower(link.Anchor)
	target := strings.ToLower(link.URL)
	for _, term := range []string{"impressum", "rathaus", "politik", "verwaltung", "buergerservice", "bürgerservice", "aktuelles"} {
		if strings.Contains(anchor, term) || strings.Contains(target, term) {
			return true
		}
	}
	return false
}

func risScore(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	host := strings.ToLower(u.Hostname())
	for _, signal := range risDomainSignals {
		if strings.Contains(host, signal) {
			return 2
		}
	}
	path := strings.ToLower(u.Path)
	for _, signal := range risPathSignals {
		if strings.Contains(path, signal) {
			return 1
		}
	}
	return 0
}

func gazetteScore(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	path := strings.ToLower(u.Path)
	for _, signal := range gazettePathSignals {
		if strings.Contains(path, signal) {
			return 1
		}
	}
	return 0
}

func ranked(scores map[string]int) []RankedLink {
	out := make([]RankedLink, 0, len(scores))
	for u, score := range scores {
		out = append(out, RankedLink{URL: u, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URL < out[j].URL
	})
	return out
}
