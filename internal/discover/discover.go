// Package discover holds the source adapters that turn municipality seeds
// into candidates: the shared site-driven link discovery plus the RIS,
// Amtsblatt and municipal-website adapters. Adapters never throw silently;
// every failure is classified into the diagnostics record.
package discover

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bessradar/bessradar/internal/fetch"
	"github.com/bessradar/bessradar/internal/models"
)

// Item is a proto-candidate emitted by an adapter. The discovery worker turns
// items into persisted candidates after the prefilter.
type Item struct {
	Title         string
	URL           string
	Date          *time.Time
	DocURLs       []string
	DiscoveryPath string
}

// Result is the uniform adapter return: items plus diagnostics.
type Result struct {
	Items       []Item
	Diagnostics models.DiscoveryDiagnostics
}

// diagnostics accumulates the attempt trail of one adapter run.
type diagnostics struct {
	method    models.DiscoveryMethod
	attempted []string
	failed    map[string]string
	sslSeen   bool
	non404    bool
}

func newDiagnostics(method models.DiscoveryMethod) *diagnostics {
	return &diagnostics{method: method, failed: map[string]string{}}
}

func (d *diagnostics) attempt(u string) {
	d.attempted = append(d.attempted, u)
}

func (d *diagnostics) fail(u string, err error) {
	reason := classifyFailure(err)
	d.failed[u] = reason
	if reason == "ssl" {
		d.sslSeen = true
	}
	if reason != "http_404" {
		d.non404 = true
	}
}

// finish derives the reason code from the trail: FOUND when items exist,
// otherwise the strongest failure signal seen.
func (d *diagnostics) finish(itemCount int, sawContent bool) models.DiscoveryDiagnostics {
	reason := models.ReasonFound
	switch {
	case itemCount > 0:
		reason = models.ReasonFound
	case len(d.attempted) == 0:
		reason = models.ReasonNoSeedURL
	case d.sslSeen:
		reason = models.ReasonSSLBlocked
	case sawContent:
		reason = models.ReasonFoundButEmpty
	case len(d.failed) == len(d.attempted) && !d.non404:
		reason = models.ReasonAllURLs404
	default:
		reason = models.ReasonNoMarkersFound
	}
	return models.DiscoveryDiagnostics{
		Method:        d.method,
		AttemptedURLs: d.attempted,
		FailedURLs:    d.failed,
		ReasonCode:    reason,
	}
}

func classifyFailure(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetch.KindSSL:
			return "ssl"
		case fetch.KindRobotsDisallow:
			return "robots_disallow"
		case fetch.KindHTTP4xx:
			if fe.StatusCode == 404 {
				return "http_404"
			}
			return fmt.Sprintf("http_%d", fe.StatusCode)
		case fetch.KindTooLarge:
			return "too_large"
		case fetch.KindInvalidURL:
			return "invalid_url"
		}
	}
	return "network"
}

// sameHost reports whether a resolved link stays on the seed's host.
func sameHost(seedHost, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == seedHost || strings.HasSuffix(host, "."+seedHost)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func isPDFURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "getfile") ||
		strings.Contains(lower, "do0050") || strings.Contains(lower, "format=pdf")
}
