package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// CacheMeta is the sidecar record stored next to each cached body.
type CacheMeta struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	RetrievedAt  time.Time `json:"retrieved_at"`
}

// DiskCache stores HTTP bodies keyed by URL hash, with a .meta.json sidecar
// carrying the validators for conditional requests.
type DiskCache struct {
	dir string
}

// NewDiskCache returns a cache rooted at dir; empty dir disables caching.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

func (c *DiskCache) enabled() bool { return c.dir != "" }

func (c *DiskCache) pathsFor(url string) (body, meta string) {
	sum := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, key+".body"), filepath.Join(c.dir, key+".meta.json")
}

// Get returns the cached body and meta for a URL, or ok=false.
func (c *DiskCache) Get(url string) ([]byte, CacheMeta, bool) {
	if !c.enabled() {
		return nil, CacheMeta{}, false
	}
	bodyPath, metaPath := c.pathsFor(url)

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, CacheMeta{}, false
	}
	var meta CacheMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, CacheMeta{}, false
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, CacheMeta{}, false
	}
	return body, meta, true
}

// Put stores a body and its validators. Failures are swallowed: a broken
// cache must never fail a fetch.
func (c *DiskCache) Put(url string, body []byte, meta CacheMeta) {
	if !c.enabled() {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	bodyPath, metaPath := c.pathsFor(url)
	meta.URL = url
	if meta.RetrievedAt.IsZero() {
		meta.RetrievedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := os.WriteFile(bodyPath, body, 0o644); err != nil {
		return
	}
	_ = os.WriteFile(metaPath, raw, 0o644)
}
