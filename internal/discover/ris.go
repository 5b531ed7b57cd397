package discover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/extract"
	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/htmltext"
	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// sessionCutoff is the oldest session date still worth walking.
var sessionCutoff = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// committeeAllowlist names the bodies that handle planning and permits.
// Everything else (Kulturausschuss, Sportbeirat, ...) is skipped.
var committeeAllowlist = []string{
	"bauausschuss",
	"hauptausschuss",
	"gemeindevertretung",
	"stadtverordnetenversammlung",
	"wirtschaftsausschuss",
	"umweltausschuss",
}

const (
	maxCommittees           = 6
	maxSessionsPerCommittee = 40
	staleSessionStop        = 3
)

// RISAdapter walks a council information system: committees, sessions in
// reverse-chronological order, agenda items with their attachments.
type RISAdapter struct {
	client *fetch.Client
	logger arbor.ILogger
}

func NewRISAdapter(client *fetch.Client, logger arbor.ILogger) *RISAdapter {
	return &RISAdapter{client: client, logger: logger}
}

// Discover runs the adapter. entryURL comes from site-driven discovery; when
// empty, URL patterns derived from the municipality name are probed instead.
func (a *RISAdapter) Discover(ctx context.Context, seed models.MunicipalitySeed, entryURL string) *Result {
	method := models.MethodSiteDriven
	if entryURL == "" {
		method = models.MethodPatternGuessing
	}
	diag := newDiagnostics(method)

	entry, body := a.locateEntry(ctx, seed, entryURL, diag)
	if entry == "" {
		return &Result{Diagnostics: diag.finish(0, false)}
	}

	page, err := htmltext.Parse(body, entry)
	if err != nil {
		diag.fail(entry, err)
		return &Result{Diagnostics: diag.finish(0, true)}
	}

	var items []Item
	committees := 0
	for _, link := range page.Links {
		committee := matchedCommittee(link.Anchor)
		if committee == "" {
			continue
		}
		committees++
		if committees > maxCommittees {
			break
		}
		items = append(items, a.walkCommittee(ctx, link.URL, committee, diag)...)
	}

	// Flat systems list sessions on the entry page without a committee layer.
	if committees == 0 {
		items = append(items, a.walkSessions(ctx, page.Links, "sitzungen", diag)...)
	}

	return &Result{Items: items, Diagnostics: diag.finish(len(items), true)}
}

// locateEntry returns a responding RIS entry URL and its body. Pattern
// guessing accepts a URL only when the page carries RIS vocabulary.
func (a *RISAdapter) locateEntry(ctx context.Context, seed models.MunicipalitySeed, entryURL string, diag *diagnostics) (string, []byte) {
	candidates := []string{entryURL}
	if entryURL == "" {
		name := SanitizeNameForURL(seed.Name)
		if name == "" {
			return "", nil
		}
		candidates = []string{
			fmt.Sprintf("https://www.sitzungsdienst-%s.de/", name),
			fmt.Sprintf("https://%s.ratsinfomanagement.net/", name),
			fmt.Sprintf("https://ris.%s.de/", name),
			fmt.Sprintf("https://sessionnet.krz.de/%s/bi/si0100.asp", name),
		}
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		diag.attempt(candidate)
		resp, err := a.client.Get(ctx, candidate, fetch.Options{RIS: true})
		if err != nil {
			diag.fail(candidate, err)
			continue
		}
		if entryURL == "" && !hasRISVocabulary(resp.Body) {
			diag.fail(candidate, fmt.Errorf("no ris markers in response"))
			continue
		}
		return resp.URL, resp.Body
	}
	return "", nil
}

// walkCommittee paginates a committee's sessions newest first and stops after
// staleSessionStop consecutive sessions older than the cutoff. Listings are
// not strictly monotonic, so a single old session does not end the walk.
func (a *RISAdapter) walkCommittee(ctx context.Context, committeeURL, committee string, diag *diagnostics) []Item {
	diag.attempt(committeeURL)
	resp, err := a.client.Get(ctx, committeeURL, fetch.Options{RIS: true})
	if err != nil {
		diag.fail(committeeURL, err)
		return nil
	}
	page, err := htmltext.Parse(resp.Body, committeeURL)
	if err != nil {
		diag.fail(committeeURL, err)
		return nil
	}
	return a.walkSessions(ctx, page.Links, committee, diag)
}

func (a *RISAdapter) walkSessions(ctx context.Context, links []htmltext.Link, committee string, diag *diagnostics) []Item {
	var items []Item
	stale := 0
	sessions := 0
	for _, link := range links {
		date, ok := sessionLink(link)
		if !ok {
			continue
		}
		sessions++
		if sessions > maxSessionsPerCommittee {
			break
		}
		if date != nil && date.Before(sessionCutoff) {
			stale++
			if stale >= staleSessionStop {
				break
			}
			continue
		}
		stale = 0
		items = append(items, a.sessionItems(ctx, link.URL, committee, date, diag)...)
	}
	return items
}

// sessionItems enumerates the agenda of one session page.
func (a *RISAdapter) sessionItems(ctx context.Context, sessionURL, committee string, date *time.Time, diag *diagnostics) []Item {
	diag.attempt(sessionURL)
	resp, err := a.client.Get(ctx, sessionURL, fetch.Options{RIS: true})
	if err != nil {
		diag.fail(sessionURL, err)
		return nil
	}
	page, err := htmltext.Parse(resp.Body, sessionURL)
	if err != nil {
		diag.fail(sessionURL, err)
		return nil
	}

	var items []Item
	for _, link := range page.Links {
		if !agendaLink(link) {
			continue
		}
		item := Item{
			Title:         link.Anchor,
			URL:           link.URL,
			Date:          date,
			DiscoveryPath: "ris > " + committee,
		}
		for _, doc := range page.Links {
			if isPDFURL(doc.URL) && relatedDoc(link, doc) {
				item.DocURLs = append(item.DocURLs, doc.URL)
			}
		}
		if len(item.DocURLs) == 0 && isPrivilegedAgenda(link.Anchor) {
			item.DocURLs = a.followAgendaItem(ctx, link.URL, diag)
		}
		items = append(items, item)
	}
	return items
}

// followAgendaItem fetches an agenda item page once to collect its
// attachments. Only privileged titles are worth the extra request.
func (a *RISAdapter) followAgendaItem(ctx context.Context, itemURL string, diag *diagnostics) []string {
	diag.attempt(itemURL)
	resp, err := a.client.Get(ctx, itemURL, fetch.Options{RIS: true})
	if err != nil {
		diag.fail(itemURL, err)
		return nil
	}
	page, err := htmltext.Parse(resp.Body, itemURL)
	if err != nil {
		return nil
	}
	var docs []string
	for _, link := range page.Links {
		if isPDFURL(link.URL) {
			docs = append(docs, link.URL)
		}
	}
	return docs
}

// SanitizeNameForURL maps a municipality name onto the token RIS providers
// use in their URLs: parentheses stripped, umlauts transliterated, everything
// outside [a-z0-9-] collapsed to a dash.
func SanitizeNameForURL(name string) string {
	if idx := strings.IndexByte(name, '('); idx >= 0 {
		name = name[:idx]
	}
	norm := textnorm.Normalize(name).Text

	var b strings.Builder
	lastDash := true
	for _, r := range norm {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func matchedCommittee(anchor string) string {
	norm := textnorm.Normalize(anchor).Text
	for _, committee := range committeeAllowlist {
		if strings.Contains(norm, committee) {
			return committee
		}
	}
	return ""
}

// sessionLink recognizes session detail links and pulls the session date from
// the anchor text when present.
func sessionLink(link htmltext.Link) (*time.Time, bool) {
	lower := strings.ToLower(link.URL)
	isSession := strings.Contains(lower, "to0100") || strings.Contains(lower, "si0057") ||
		strings.Contains(lower, "sitzung") || strings.Contains(lower, "meeting")
	if !isSession {
		return nil, false
	}
	if dates := extract.Dates(link.Anchor); len(dates) > 0 {
		d := dates[0].Date
		return &d, true
	}
	return nil, true
}

// agendaLink recognizes agenda item links: ALLRIS/SessionNet detail pages or
// anchors with real titles.
func agendaLink(link htmltext.Link) bool {
	if len(strings.TrimSpace(link.Anchor)) < 8 {
		return false
	}
	lower := strings.ToLower(link.URL)
	return strings.Contains(lower, "vo0050") || strings.Contains(lower, "to0050") ||
		strings.Contains(lower, "vorlage") || strings.Contains(lower, "topid") ||
		strings.Contains(lower, "agenda")
}

// relatedDoc is a crude adjacency test: a document belongs to an agenda item
// when the anchor texts overlap. RIS list pages rarely nest attachments, so
// the privileged follow-up does the precise work.
func relatedDoc(item, doc htmltext.Link) bool {
	if doc.Anchor == "" || item.Anchor == "" {
		return false
	}
	return strings.Contains(textnorm.Normalize(doc.Anchor).Text, textnorm.Normalize(item.Anchor).Text)
}

func isPrivilegedAgenda(title string) bool {
	return keywords.PrivilegedAgenda.Contains(textnorm.Normalize(title).Text)
}

func hasRISVocabulary(body []byte) bool {
	return keywords.RISMarkers.Contains(textnorm.Normalize(string(body)).Text)
}
