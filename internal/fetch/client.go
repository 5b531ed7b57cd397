// Package fetch is the single chokepoint for outbound HTTP. Robots, rate
// limits, concurrency caps, caching, retries and the SSL fallback chain all
// live here; nothing else in the codebase opens a connection.
package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/keywords"
	"github.com/bessradar/bessradar/internal/models"
	"github.com/bessradar/bessradar/internal/textnorm"
)

// Options steer a single request.
type Options struct {
	// RIS marks requests against council information systems, enabling the
	// HTTP downgrade fallback.
	RIS bool
	// Mode controls the PDF size guard: fast skips oversized files.
	Mode models.CrawlMode
	// PDFGuard runs a HEAD before the GET and enforces the size cap.
	PDFGuard bool
}

// Response is a completed fetch.
type Response struct {
	URL           string
	StatusCode    int
	Body          []byte
	Header        http.Header
	FromCache     bool
	InsecureTLS   bool
	HTTPDowngrade bool
}

// Counters are the process-wide SSL policy tallies.
type Counters struct {
	SSLErrorsTotal        atomic.Int64
	SSLFallbackUsedTotal  atomic.Int64
	HTTPFallbackUsedTotal atomic.Int64
	RobotsDisallowedTotal atomic.Int64
}

// Client wires the whole outbound policy together.
type Client struct {
	cfg      common.CrawlerConfig
	logger   arbor.ILogger
	verified *http.Client
	insecure *http.Client
	robots   *RobotsCache
	limiter  *HostLimiter
	sems     *semaphores
	cache    *DiskCache

	allowlist map[string]bool
	Counters  Counters
}

const maxBodySize = 50 * 1024 * 1024

// NewClient builds the chokepoint from configuration.
func NewClient(cfg common.CrawlerConfig, logger arbor.ILogger) *Client {
	verified := &http.Client{Timeout: cfg.ConnectTimeout + cfg.ReadTimeout}
	insecure := &http.Client{
		Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	allowlist := make(map[string]bool, len(cfg.SSLInsecureAllowlist))
	for _, host := range cfg.SSLInsecureAllowlist {
		allowlist[strings.ToLower(host)] = true
	}

	var robotsDir, httpDir string
	if cfg.CacheBase != "" {
		robotsDir = filepath.Join(cfg.CacheBase, "robots")
		httpDir = filepath.Join(cfg.CacheBase, "http")
	}

	return &Client{
		cfg:       cfg,
		logger:    logger,
		verified:  verified,
		insecure:  insecure,
		robots:    NewRobotsCache(cfg.UserAgent, robotsDir, verified, logger),
		limiter:   NewHostLimiter(cfg.DefaultHostDelay, cfg.HostDelayTable()),
		sems:      newSemaphores(cfg.GlobalConcurrency, cfg.PerDomainConcurrency),
		cache:     NewDiskCache(httpDir),
		allowlist: allowlist,
	}
}

// Get fetches a URL through the full policy chain.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	host := strings.ToLower(u.Hostname())

	if c.cfg.FollowRobotsTxt {
		allowed, crawlDelay := c.robots.Allowed(ctx, u.Scheme, u.Host, u.Path)
		c.limiter.Observe(host, crawlDelay)
		if !allowed {
			c.Counters.RobotsDisallowedTotal.Add(1)
			c.logger.Info().Str("url", rawURL).Msg("ROBOTS_DISALLOW")
			return nil, &Error{Kind: KindRobotsDisallow, URL: rawURL}
		}
	}

	release, err := c.sems.acquire(ctx, host)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	defer release()

	if err := c.limiter.Wait(ctx, host); err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	if opts.PDFGuard && opts.Mode != models.ModeDeep {
		if err := c.headGuard(ctx, rawURL, host); err != nil {
			return nil, err
		}
	}

	_, cachedMeta, hasCached := c.cache.Get(rawURL)

	resp, err := c.doWithRetries(ctx, rawURL, host, opts, cachedMeta, hasCached)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// headGuard rejects oversized PDFs before the body transfer.
func (c *Client) headGuard(ctx context.Context, rawURL, host string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.verified.Do(req)
	if err != nil && isTLSError(err) && c.allowlist[host] {
		// Keep the size cap effective on allowlisted bad-cert hosts.
		resp, err = c.insecure.Do(req)
	}
	if err != nil {
		// Remaining HEAD problems fall through to the GET, which has the
		// full fallback chain.
		return nil
	}
	defer resp.Body.Close()

	limit := int64(c.cfg.PDFMaxSizeMB) * 1024 * 1024
	if resp.ContentLength > limit {
		c.logger.Info().
			Str("url", rawURL).
			Int64("content_length", resp.ContentLength).
			Msg("pdf exceeds size cap, skipped in fast mode")
		return &Error{Kind: KindTooLarge, URL: rawURL}
	}
	return nil
}

// doWithRetries runs the attempt loop: 5xx and transient network errors are
// retried with exponential backoff and jitter, 4xx is terminal except 408 and
// 429, and TLS failures divert into the SSL fallback chain.
func (c *Client) doWithRetries(ctx context.Context, rawURL, host string, opts Options, cachedMeta CacheMeta, hasCached bool) (*Response, error) {
	attempts := c.cfg.Retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
			}
		}

		resp, err := c.attempt(ctx, c.verified, rawURL, opts, cachedMeta, hasCached, false)
		if err == nil {
			if resp.StatusCode >= 500 || resp.StatusCode == 408 || resp.StatusCode == 429 {
				lastErr = &Error{Kind: KindNetwork, URL: rawURL, StatusCode: resp.StatusCode}
				continue
			}
			if resp.StatusCode >= 400 {
				return nil, &Error{Kind: KindHTTP4xx, URL: rawURL, StatusCode: resp.StatusCode}
			}
			return resp, nil
		}

		if isTLSError(err) {
			c.Counters.SSLErrorsTotal.Add(1)
			return c.sslFallback(ctx, rawURL, host, opts, cachedMeta, hasCached, err)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if fe, ok := lastErr.(*Error); ok {
		return nil, fe
	}
	return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: lastErr}
}

// sslFallback runs the two permitted escapes from a TLS failure: insecure
// retry for allowlisted hosts, then the HTTPS→HTTP downgrade for RIS
// requests.
func (c *Client) sslFallback(ctx context.Context, rawURL, host string, opts Options, cachedMeta CacheMeta, hasCached bool, tlsErr error) (*Response, error) {
	if c.allowlist[host] {
		resp, err := c.attempt(ctx, c.insecure, rawURL, opts, cachedMeta, hasCached, true)
		if err == nil && resp.StatusCode < 400 {
			c.Counters.SSLFallbackUsedTotal.Add(1)
			c.logger.Warn().Str("url", rawURL).Msg("SSL_FALLBACK_VERIFY_FALSE")
			return resp, nil
		}
	}

	if opts.RIS && c.cfg.AllowHTTPFallback && strings.HasPrefix(rawURL, "https://") {
		downgraded := "http://" + strings.TrimPrefix(rawURL, "https://")
		resp, err := c.attempt(ctx, c.verified, downgraded, opts, CacheMeta{}, false, false)
		if err == nil && resp.StatusCode == 200 && hasRISMarkers(resp.Body) {
			c.Counters.HTTPFallbackUsedTotal.Add(1)
			c.logger.Warn().Str("url", rawURL).Msg("RIS_HTTP_FALLBACK_USED")
			resp.HTTPDowngrade = true
			return resp, nil
		}
	}

	return nil, &Error{Kind: KindSSL, URL: rawURL, Err: tlsErr}
}

// attempt performs one GET, sending cache validators and serving 304s from
// the cached body.
func (c *Client) attempt(ctx context.Context, httpClient *http.Client, rawURL string, opts Options, cachedMeta CacheMeta, hasCached, insecureTLS bool) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if hasCached {
		if cachedMeta.ETag != "" {
			req.Header.Set("If-None-Match", cachedMeta.ETag)
		}
		if cachedMeta.LastModified != "" {
			req.Header.Set("If-Modified-Since", cachedMeta.LastModified)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if body, meta, ok := c.cache.Get(rawURL); ok {
			return &Response{
				URL:        rawURL,
				StatusCode: meta.StatusCode,
				Body:       body,
				Header:     resp.Header,
				FromCache:  true,
			}, nil
		}
		// A 304 is only useful with a cached body behind it. If the entry
		// vanished, refetch unconditionally.
		if hasCached {
			return c.attempt(ctx, httpClient, rawURL, opts, CacheMeta{}, false, insecureTLS)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		c.cache.Put(rawURL, body, CacheMeta{
			StatusCode:   resp.StatusCode,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			ContentType:  resp.Header.Get("Content-Type"),
		})
	}

	return &Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		Header:      resp.Header,
		InsecureTLS: insecureTLS,
	}, nil
}

// hasRISMarkers checks a downgraded response body for council-system
// vocabulary before the fallback is trusted.
func hasRISMarkers(body []byte) bool {
	norm := textnorm.Normalize(string(body)).Text
	return keywords.RISMarkers.Contains(norm)
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Second * time.Duration(1<<uint(attempt-1))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
	timer := time.NewTimer(backoff + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
