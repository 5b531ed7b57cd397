package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bessradar/bessradar/internal/common"
	"github.com/bessradar/bessradar/internal/models"
)

func testConfig(t *testing.T) common.CrawlerConfig {
	t.Helper()
	cfg := common.DefaultConfig().Crawler
	cfg.CacheBase = t.TempDir()
	cfg.DefaultHostDelay = time.Millisecond
	cfg.Retries = 3
	cfg.FollowRobotsTxt = false
	return cfg
}

func newTestClient(t *testing.T, cfg common.CrawlerConfig) *Client {
	t.Helper()
	return NewClient(cfg, common.GetLogger())
}

func TestGetSimple(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.DefaultConfig().Crawler.UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte("hallo"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))
	resp, err := c.Get(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "hallo", string(resp.Body))
}

func TestGetInvalidURL(t *testing.T) {
	c := newTestClient(t, testConfig(t))
	_, err := c.Get(context.Background(), "::not-a-url", Options{})
	assert.Equal(t, KindInvalidURL, KindOf(err))

	_, err = c.Get(context.Background(), "ftp://example.de/x", Options{})
	assert.Equal(t, KindInvalidURL, KindOf(err))
}

func TestGet4xxTerminal(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))
	_, err := c.Get(context.Background(), srv.URL, Options{})
	assert.Equal(t, KindHTTP4xx, KindOf(err))
	assert.Equal(t, int64(1), hits.Load(), "4xx must not be retried")
}

func TestGetRetries5xx(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))
	resp, err := c.Get(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int64(2), hits.Load())
}

func TestConditionalGetServes304FromCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("versioned body"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))

	first, err := c.Get(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Get(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "versioned body", string(second.Body))
	assert.Equal(t, int64(2), hits.Load())
}

func TestConditionalGetRefetchesWhenCacheEntryVanished(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("versioned body"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))

	// Validators claim a cached copy, but the cache has no entry behind
	// them: the 304 must trigger an unconditional refetch, not an empty
	// success.
	resp, err := c.attempt(context.Background(), c.verified, srv.URL, Options{},
		CacheMeta{ETag: `"v1"`}, true, false)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "versioned body", string(resp.Body))
	assert.Equal(t, int64(2), hits.Load())
}

func TestRobotsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.FollowRobotsTxt = true
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), srv.URL+"/private/doc.pdf", Options{})
	assert.Equal(t, KindRobotsDisallow, KindOf(err))
	assert.Equal(t, int64(1), c.Counters.RobotsDisallowedTotal.Load())

	resp, err := c.Get(context.Background(), srv.URL+"/public", Options{})
	require.NoError(t, err)
	assert.Equal(t, "content", string(resp.Body))
}

func TestRobotsFailOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.FollowRobotsTxt = true
	c := newTestClient(t, cfg)

	resp, err := c.Get(context.Background(), srv.URL+"/anything", Options{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSSLFallbackAllowlisted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure content"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.SSLInsecureAllowlist = []string{u.Hostname()}
	c := newTestClient(t, cfg)

	resp, err := c.Get(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "secure content", string(resp.Body))
	assert.True(t, resp.InsecureTLS)
	assert.Equal(t, int64(1), c.Counters.SSLErrorsTotal.Load())
	assert.Equal(t, int64(1), c.Counters.SSLFallbackUsedTotal.Load())
}

func TestSSLErrorWithoutAllowlist(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure content"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))
	_, err := c.Get(context.Background(), srv.URL, Options{})
	assert.Equal(t, KindSSL, KindOf(err))
	assert.Equal(t, int64(0), c.Counters.SSLFallbackUsedTotal.Load())
}

func TestRISHTTPDowngrade(t *testing.T) {
	// Plain HTTP server; the https:// attempt fails the TLS handshake and
	// the downgrade finds RIS vocabulary in the body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Ratsinformationssystem: Sitzung des Bauausschusses</html>"))
	}))
	defer srv.Close()

	httpsURL := "https://" + strings.TrimPrefix(srv.URL, "http://")

	cfg := testConfig(t)
	cfg.AllowHTTPFallback = true
	c := newTestClient(t, cfg)

	resp, err := c.Get(context.Background(), httpsURL, Options{RIS: true})
	require.NoError(t, err)
	assert.True(t, resp.HTTPDowngrade)
	assert.Equal(t, int64(1), c.Counters.HTTPFallbackUsedTotal.Load())
}

func TestRISHTTPDowngradeRequiresMarkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>nothing council-like here</html>"))
	}))
	defer srv.Close()

	httpsURL := "https://" + strings.TrimPrefix(srv.URL, "http://")

	cfg := testConfig(t)
	cfg.AllowHTTPFallback = true
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), httpsURL, Options{RIS: true})
	assert.Equal(t, KindSSL, KindOf(err))
}

func TestRISHTTPDowngradeDisabledByConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sitzung Tagesordnung")) // markers present but gate closed
	}))
	defer srv.Close()

	httpsURL := "https://" + strings.TrimPrefix(srv.URL, "http://")

	cfg := testConfig(t)
	cfg.AllowHTTPFallback = false
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), httpsURL, Options{RIS: true})
	assert.Equal(t, KindSSL, KindOf(err))
}

func TestPDFGuardSkipsLargeInFastMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "99999999999")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(t))
	_, err := c.Get(context.Background(), srv.URL+"/big.pdf", Options{PDFGuard: true, Mode: models.ModeFast})
	assert.Equal(t, KindTooLarge, KindOf(err))
}

func TestPDFGuardAppliesOnAllowlistedBadCertHost(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "99999999999")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.SSLInsecureAllowlist = []string{u.Hostname()}
	c := newTestClient(t, cfg)

	// The verified HEAD fails on the self-signed cert; the size cap must
	// still hold via the insecure retry instead of silently passing.
	_, err = c.Get(context.Background(), srv.URL+"/big.pdf", Options{PDFGuard: true, Mode: models.ModeFast})
	assert.Equal(t, KindTooLarge, KindOf(err))
}

func TestTLSErrorRecognizesPlainHTTPResponse(t *testing.T) {
	// net/http strips the RecordHeaderError down to this bare string when an
	// https:// request reaches a plain-HTTP server.
	err := errors.New(`Get "https://ris.example.de/si0100": http: server gave HTTP response to HTTPS client`)
	assert.True(t, isTLSError(err))
}

func TestHostLimiterSpacing(t *testing.T) {
	hl := NewHostLimiter(50*time.Millisecond, nil)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "example.de"))
	require.NoError(t, hl.Wait(ctx, "example.de"))
	require.NoError(t, hl.Wait(ctx, "example.de"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "three requests need two delay intervals")
}

func TestHostLimiterObserveOnlyRaises(t *testing.T) {
	hl := NewHostLimiter(time.Second, map[string]time.Duration{"geobasis-bb.de": 10 * time.Second})

	hl.Observe("geobasis-bb.de", 2*time.Second)
	assert.Equal(t, 10*time.Second, hl.Delay("geobasis-bb.de"))

	hl.Observe("slow.example.de", 5*time.Second)
	assert.Equal(t, 5*time.Second, hl.Delay("slow.example.de"))
}

func TestSemaphoresPerHostCap(t *testing.T) {
	sems := newSemaphores(100, 2)
	ctx := context.Background()

	var mu sync.Mutex
	inflight, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := sems.acquire(ctx, "host.de")
			if err != nil {
				return
			}
			mu.Lock()
			inflight++
			if inflight > peak {
				peak = inflight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inflight--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 2)
	assert.Greater(t, peak, 0)
}

func TestDiskCacheRoundtrip(t *testing.T) {
	cache := NewDiskCache(t.TempDir())
	meta := CacheMeta{StatusCode: 200, ETag: `"abc"`, ContentType: "text/html"}
	cache.Put("https://example.de/x", []byte("body"), meta)

	body, got, ok := cache.Get("https://example.de/x")
	require.True(t, ok)
	assert.Equal(t, "body", string(body))
	assert.Equal(t, `"abc"`, got.ETag)
	assert.Equal(t, "https://example.de/x", got.URL)
	assert.False(t, got.RetrievedAt.IsZero())

	_, _, ok = cache.Get("https://example.de/other")
	assert.False(t, ok)
}

func TestDiskCacheDisabled(t *testing.T) {
	cache := NewDiskCache("")
	cache.Put("https://example.de/x", []byte("body"), CacheMeta{})
	_, _, ok := cache.Get("https://example.de/x")
	assert.False(t, ok)
}
