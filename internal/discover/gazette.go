package discover

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/extract"
	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/models"
)

const maxGazetteIssues = 30

// GazetteAdapter lists official gazette (Amtsblatt) issues. PDF issues become
// one candidate each; HTML issues with a table of contents become one
// candidate per entry.
type GazetteAdapter struct {
	client *fetch.Client
	logger arbor.ILogger
}

func NewGazetteAdapter(client *fetch.Client, logger arbor.ILogger) *GazetteAdapter {
	return &GazetteAdapter{client: client, logger: logger}
}

// Discover walks the gazette index at entryURL.
func (a *GazetteAdapter) Discover(ctx context.Context, seed models.MunicipalitySeed, entryURL string) *Result {
	diag := newDiagnostics(models.MethodSiteDriven)
	if entryURL == "" {
		return &Result{Diagnostics: diag.finish(0, false)}
	}

	diag.attempt(entryURL)
	resp, err := a.client.Get(ctx, entryURL, fetch.Options{})
	if err != nil {
		diag.fail(entryURL, err)
		return &Result{Diagnostics: diag.finish(0, false)}
	}
	page, err := htmltext.Parse(resp.Body, entryURL)
	if err != nil {
		diag.fail(entryURL, err)
		return &Result{Diagnostics: diag.finish(0, true)}
	}

	var items []Item
	issues := 0
	for _, link := range page.Links {
		if !issueLink(link) {
			continue
		}
		issues++
		if issues > maxGazetteIssues {
			break
		}

		date := issueDate(link.Anchor)
		if isPDFURL(link.URL) {
			items = append(items, Item{
				Title:         link.Anchor,
				URL:           link.URL,
				Date:          date,
				DocURLs:       []string{link.URL},
				DiscoveryPath: "amtsblatt > issue",
			})
			continue
		}
		items = append(items, a.tocItems(ctx, link, date, diag)...)
	}

	return &Result{Items: items, Diagnostics: diag.finish(len(items), true)}
}

// tocItems reads an HTML issue page and emits one item per table-of-contents
// entry. When the TOC yields nothing, the issue itself is the candidate.
func (a *GazetteAdapter) tocItems(ctx context.Context, issue htmltext.Link, date *time.Time, diag *diagnostics) []Item {
	issueItem := Item{
		Title:         issue.Anchor,
		URL:           issue.URL,
		Date:          date,
		DiscoveryPath: "amtsblatt > issue",
	}

	diag.attempt(issue.URL)
	resp, err := a.client.Get(ctx, issue.URL, fetch.Options{})
	if err != nil {
		diag.fail(issue.URL, err)
		return []Item{issueItem}
	}
	page, err := htmltext.Parse(resp.Body, issue.URL)
	if err != nil {
		return []Item{issueItem}
	}

	var items []Item
	for _, entry := range page.Links {
		if len(strings.TrimSpace(entry.Anchor)) < 10 {
			continue
		}
		if !isPDFURL(entry.URL) && !strings.Contains(strings.ToLower(entry.URL), "bekanntmachung") {
			continue
		}
		entryDate := issueDate(entry.Anchor)
		if entryDate == nil {
			entryDate = date
		}
		item := Item{
			Title:         entry.Anchor,
			URL:           entry.URL,
			Date:          entryDate,
			DiscoveryPath: "amtsblatt > toc",
		}
		if isPDFURL(entry.URL) {
			item.DocURLs = []string{entry.URL}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return []Item{issueItem}
	}
	return items
}

func issueLink(link htmltext.Link) bool {
	target := strings.ToLower(link.URL)
	anchor := strings.ToLower(link.Anchor)
	for _, signal := range []string{"amtsblatt", "bekanntmachung", "veroeffentlichung", "veröffentlichung"} {
		if strings.Contains(target, signal) || strings.Contains(anchor, signal) {
			return true
		}
	}
	return false
}

func issueDate(anchor string) *time.Time {
	if dates := extract.Dates(anchor); len(dates) > 0 {
		d := dates[0].Date
		return &d
	}
	return nil
}
