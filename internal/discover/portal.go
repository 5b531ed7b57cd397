package discover

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/models"
)

const maxPortalProcedures = 30

// PortalAdapter lists procedures from a DiPlanung participation portal. The
// portal is opt-in per seed: municipalities without a portal entry point are
// simply NOT_RUN for this source.
type PortalAdapter struct {
	client *fetch.Client
	logger arbor.ILogger
}

func NewPortalAdapter(client *fetch.Client, logger arbor.ILogger) *PortalAdapter {
	return &PortalAdapter{client: client, logger: logger}
}

// Discover fetches the portal entry page and emits one item per procedure
// detail link, with the detail page's documents attached.
func (a *PortalAdapter) Discover(ctx context.Context, seed models.MunicipalitySeed, entryURL string) *Result {
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
	seen := map[string]bool{}
	for _, link := range page.Links {
		if !procedureLink(link) || seen[link.URL] {
			continue
		}
		seen[link.URL] = true

		items = append(items, Item{
			Title:         link.Anchor,
			URL:           link.URL,
			Date:          issueDate(link.Anchor),
			DocURLs:       a.detailDocuments(ctx, link.URL, diag),
			DiscoveryPath: "diplanung > verfahren",
		})
		if len(items) == maxPortalProcedures {
			break
		}
	}

	return &Result{Items: items, Diagnostics: diag.finish(len(items), true)}
}

// detailDocuments scrapes one procedure detail page for attached documents.
// A failed detail fetch loses only that page's documents.
func (a *PortalAdapter) detailDocuments(ctx context.Context, detailURL string, diag *diagnostics) []string {
	diag.attempt(detailURL)
	resp, err := a.client.Get(ctx, detailURL, fetch.Options{})
	if err != nil {
		diag.fail(detailURL, err)
		return nil
	}
	page, err := htmltext.Parse(resp.Body, detailURL)
	if err != nil {
		return nil
	}

	var docs []string
	seen := map[string]bool{}
	for _, link := range page.Links {
		lower := strings.ToLower(link.URL)
		if !isPDFURL(lower) && !strings.HasSuffix(lower, ".doc") && !strings.HasSuffix(lower, ".docx") {
			continue
		}
		if seen[link.URL] {
			continue
		}
		seen[link.URL] = true
		docs = append(docs, link.URL)
	}
	return docs
}

// procedureLink marks portal links that lead to a procedure detail page.
func procedureLink(link htmltext.Link) bool {
	target := strings.ToLower(link.URL)
	return strings.Contains(target, "verfahren") || strings.Contains(target, "participation")
}
