package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

// robotsTTL caps how long a cached robots.txt is trusted.
const robotsTTL = 24 * time.Hour

// RobotsCache fetches and caches robots.txt per host, backed by memory and a
// disk directory so reruns skip the network. Unreachable robots.txt means
// allow (fail-open).
type RobotsCache struct {
	userAgent string
	dir       string
	client    *http.Client
	logger    arbor.ILogger

	mu    sync.RWMutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsCache creates a cache storing robots bodies under dir.
func NewRobotsCache(userAgent, dir string, client *http.Client, logger arbor.ILogger) *RobotsCache {
	return &RobotsCache{
		userAgent: userAgent,
		dir:       dir,
		client:    client,
		logger:    logger,
		hosts:     map[string]*robotsEntry{},
	}
}

// Allowed reports whether the path may be fetched, and the crawl-delay the
// host requests (zero when unset).
func (rc *RobotsCache) Allowed(ctx context.Context, scheme, host, path string) (bool, time.Duration) {
	entry := rc.entryFor(ctx, scheme, host)
	if entry == nil || entry.data == nil {
		return true, 0
	}
	group := entry.data.FindGroup(rc.userAgent)
	if group == nil {
		return true, 0
	}
	return group.Test(path), group.CrawlDelay
}

func (rc *RobotsCache) entryFor(ctx context.Context, scheme, host string) *robotsEntry {
	rc.mu.RLock()
	entry, ok := rc.hosts[host]
	rc.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < robotsTTL {
		return entry
	}

	entry = rc.load(ctx, scheme, host)
	rc.mu.Lock()
	rc.hosts[host] = entry
	rc.mu.Unlock()
	return entry
}

// load reads the disk copy or fetches robots.txt. A nil data field means no
// usable rules, which callers treat as allow-all.
func (rc *RobotsCache) load(ctx context.Context, scheme, host string) *robotsEntry {
	path := filepath.Join(rc.dir, host+".txt")
	if body, err := os.ReadFile(path); err == nil {
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < robotsTTL {
			if data, err := robotstxt.FromBytes(body); err == nil {
				return &robotsEntry{data: data, fetchedAt: info.ModTime()}
			}
		}
	}

	url := scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &robotsEntry{fetchedAt: time.Now()}
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug().Str("host", host).Err(err).Msg("robots.txt unreachable, failing open")
		return &robotsEntry{fetchedAt: time.Now()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return &robotsEntry{fetchedAt: time.Now()}
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return &robotsEntry{fetchedAt: time.Now()}
	}

	if rc.dir != "" {
		if err := os.MkdirAll(rc.dir, 0o755); err == nil {
			_ = os.WriteFile(path, body, 0o644)
		}
	}
	return &robotsEntry{data: data, fetchedAt: time.Now()}
}
