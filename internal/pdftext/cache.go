package pdftext

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache stores extraction results keyed by (url, content length), so the same
// attachment is never parsed twice across runs.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir; empty dir disables caching.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key derives the cache key from URL and content length.
func Key(url string, contentLength int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d", url, contentLength)))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached result, or ok=false.
func (c *Cache) Get(url string, contentLength int) (Result, bool) {
	if c.dir == "" {
		return Result{}, false
	}
	raw, err := os.ReadFile(filepath.Join(c.dir, Key(url, contentLength)+".json"))
	if err != nil {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, false
	}
	return res, true
}

// Put stores a result; cache failures never fail extraction.
func (c *Cache) Put(url string, contentLength int, res Result) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.dir, Key(url, contentLength)+".json"), raw, 0o644)
}
