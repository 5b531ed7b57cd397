package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/bessradar/bessradar/internal/models"
)

// Config is the application configuration. Loaded from a TOML file, then
// overridden by CRAWL_* environment variables, then by CLI flags.
type Config struct {
	Mode     string         `toml:"mode" validate:"omitempty,oneof=fast deep"`
	State    string         `toml:"state"`
	Crawler  CrawlerConfig  `toml:"crawler"`
	Storage  StorageConfig  `toml:"storage"`
	Queue    QueueConfig    `toml:"queue"`
	Logging  LoggingConfig  `toml:"logging"`
	Schedule ScheduleConfig `toml:"schedule"`
	Seeds    SeedsConfig    `toml:"seeds"`
}

// CrawlerConfig covers the outbound HTTP chokepoint.
type CrawlerConfig struct {
	UserAgent            string            `toml:"user_agent"`
	GlobalConcurrency    int               `toml:"global_concurrency" validate:"gt=0"`
	PerDomainConcurrency int               `toml:"per_domain_concurrency" validate:"gt=0"`
	ConnectTimeout       time.Duration     `toml:"connect_timeout"`
	ReadTimeout          time.Duration     `toml:"read_timeout"`
	Retries              int               `toml:"retries" validate:"gte=0,lte=10"`
	DefaultHostDelay     time.Duration     `toml:"default_host_delay"`
	HostDelays           map[string]string `toml:"host_delays"` // host -> Go duration string
	PDFMaxSizeMB         int               `toml:"pdf_max_size_mb" validate:"gt=0"`
	CacheBase            string            `toml:"cache_base"`
	TextCacheBase        string            `toml:"text_cache_base"`
	SSLInsecureAllowlist []string          `toml:"ssl_insecure_allowlist"`
	AllowHTTPFallback    bool              `toml:"allow_http_fallback"`
	FollowRobotsTxt      bool              `toml:"follow_robots_txt"`
}

// StorageConfig covers the embedded store and the document blob directory.
type StorageConfig struct {
	BadgerPath     string `toml:"badger_path"`
	BasePath       string `toml:"base_path"` // document blobs under base_path/docs/{sha[:2]}/{sha}.{ext}
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type QueueConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
	Concurrency  int           `toml:"concurrency" validate:"gt=0"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
	Dir        string   `toml:"dir"`
}

// ScheduleConfig optionally re-enqueues all municipality jobs on a cron
// expression (daily/weekly reruns).
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// SeedsConfig points at the municipality seed file.
type SeedsConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Mode:  string(models.ModeFast),
		State: "BB",
		Crawler: CrawlerConfig{
			UserAgent:            "BESS-Forensic-Crawler/1.0 (Research/Transparency)",
			GlobalConcurrency:    100,
			PerDomainConcurrency: 2,
			ConnectTimeout:       10 * time.Second,
			ReadTimeout:          30 * time.Second,
			Retries:              3,
			DefaultHostDelay:     time.Second,
			HostDelays:           map[string]string{"geobasis-bb.de": "10s"},
			PDFMaxSizeMB:         25,
			CacheBase:            "data/cache",
			TextCacheBase:        "data/text_cache",
			SSLInsecureAllowlist: []string{"ssl.ratsinfo-online.net"},
			AllowHTTPFallback:    false,
			FollowRobotsTxt:      true,
		},
		Storage: StorageConfig{
			BadgerPath: "data/badger",
			BasePath:   "data/documents",
		},
		Queue: QueueConfig{
			PollInterval: time.Second,
			Concurrency:  8,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Seeds: SeedsConfig{Path: "seeds/municipalities.toml"},
	}
}

// LoadConfig loads defaults, overlays the TOML file if it exists, applies
// environment overrides, then validates.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := models.ParseCrawlMode(cfg.Mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the CRAWL_* environment variables on top of the
// file configuration. Unset variables leave the file values alone.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRAWL_MODE"); v != "" {
		cfg.Mode = v
	}
	if v, ok := envInt("CRAWL_GLOBAL_CONCURRENCY"); ok {
		cfg.Crawler.GlobalConcurrency = v
	}
	if v, ok := envInt("CRAWL_PER_DOMAIN_CONCURRENCY"); ok {
		cfg.Crawler.PerDomainConcurrency = v
	}
	if v, ok := envInt("CRAWL_TIMEOUT_S"); ok {
		cfg.Crawler.ReadTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("CRAWL_RETRIES"); ok {
		cfg.Crawler.Retries = v
	}
	if v, ok := envInt("CRAWL_PDF_MAX_SIZE_MB"); ok {
		cfg.Crawler.PDFMaxSizeMB = v
	}
	if v := os.Getenv("CRAWL_CACHE_BASE"); v != "" {
		cfg.Crawler.CacheBase = v
	}
	if v := os.Getenv("CRAWL_TEXT_CACHE_BASE"); v != "" {
		cfg.Crawler.TextCacheBase = v
	}
	if v := os.Getenv("CRAWL_SSL_INSECURE_ALLOWLIST"); v != "" {
		hosts := cfg.Crawler.SSLInsecureAllowlist
		for _, h := range strings.Split(v, ",") {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				hosts = append(hosts, h)
			}
		}
		cfg.Crawler.SSLInsecureAllowlist = hosts
	}
	if v := os.Getenv("CRAWL_ALLOW_HTTP_FALLBACK"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			cfg.Crawler.AllowHTTPFallback = true
		default:
			cfg.Crawler.AllowHTTPFallback = false
		}
	}
	if v := os.Getenv("STORAGE_BASE_PATH"); v != "" {
		cfg.Storage.BasePath = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HostDelayTable parses the configured host delay overrides.
func (c *CrawlerConfig) HostDelayTable() map[string]time.Duration {
	table := make(map[string]time.Duration, len(c.HostDelays))
	for host, raw := range c.HostDelays {
		if d, err := time.ParseDuration(raw); err == nil {
			table[strings.ToLower(host)] = d
		}
	}
	return table
}

// LoadSeeds reads the municipality seed file (TOML, [[municipality]] blocks).
func LoadSeeds(path string) ([]models.MunicipalitySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds %s: %w", path, err)
	}
	var wrapper struct {
		Municipalities []models.MunicipalitySeed `toml:"municipality"`
	}
	if err := toml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse seeds %s: %w", path, err)
	}
	return wrapper.Municipalities, nil
}
