package model

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Catalog      CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	OCR          OCRConfig         `yaml:"ocr" mapstructure:"ocr"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// SearchConfig holds the latency caps of the candidate aggregator
type SearchConfig struct {
	MaxKeywords      int           `yaml:"max_keywords" mapstructure:"max_keywords"`             // Extractor output cap
	SearchKeywords   int           `yaml:"search_keywords" mapstructure:"search_keywords"`       // Keywords taken from the extractor
	ScoredKeywords   int           `yaml:"scored_keywords" mapstructure:"scored_keywords"`       // Keywords actually scored
	EarlyExitMatches int           `yaml:"early_exit_matches" mapstructure:"early_exit_matches"` // Stop scoring once this many matches exist
	MaxResults       int           `yaml:"max_results" mapstructure:"max_results"`
	Strategies       []string      `yaml:"strategies" mapstructure:"strategies"` // Extraction strategies, see extract.StrategyNames
	Scoring          ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
}

// ScoringConfig holds the match scorer weights and thresholds
type ScoringConfig struct {
	NormalizedExactScore  float64 `yaml:"normalized_exact_score" mapstructure:"normalized_exact_score"`
	NormalizedExactMinLen int     `yaml:"normalized_exact_min_len" mapstructure:"normalized_exact_min_len"` // Normalized keyword must be longer than this
	PartialCap            float64 `yaml:"partial_cap" mapstructure:"partial_cap"`
	PartialWeight         float64 `yaml:"partial_weight" mapstructure:"partial_weight"`
	FuzzyWeight           float64 `yaml:"fuzzy_weight" mapstructure:"fuzzy_weight"`
	FuzzySubstringBonus   float64 `yaml:"fuzzy_substring_bonus" mapstructure:"fuzzy_substring_bonus"`
	FuzzyLongKeywordLen   int     `yaml:"fuzzy_long_keyword_len" mapstructure:"fuzzy_long_keyword_len"` // Keywords longer than this use the long threshold
	FuzzyLongThreshold    float64 `yaml:"fuzzy_long_threshold" mapstructure:"fuzzy_long_threshold"`
	FuzzyShortThreshold   float64 `yaml:"fuzzy_short_threshold" mapstructure:"fuzzy_short_threshold"`
	MinScore              float64 `yaml:"min_score" mapstructure:"min_score"` // Global floor, results must be strictly above
}

// CatalogConfig selects the catalog source and its invalidation policy
type CatalogConfig struct {
	Source        string        `yaml:"source" mapstructure:"source"` // file, bolt, postgres, blob, fallback
	Path          string        `yaml:"path,omitempty" mapstructure:"path"`
	Bucket        string        `yaml:"bucket,omitempty" mapstructure:"bucket"`
	DSN           string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Table         string        `yaml:"table,omitempty" mapstructure:"table"`
	Blob          BlobConfig    `yaml:"blob" mapstructure:"blob"`
	Policy        string        `yaml:"policy" mapstructure:"policy"` // never, ttl, watch
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	LoadTimeout   time.Duration `yaml:"load_timeout" mapstructure:"load_timeout"`     // Must stay below server.scan_timeout
	RetryInterval time.Duration `yaml:"retry_interval" mapstructure:"retry_interval"` // Background retries while serving a fallback
}

// BlobConfig locates a catalog document in Azure Blob Storage
type BlobConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty" mapstructure:"connection_string"`
	Container        string `yaml:"container,omitempty" mapstructure:"container"`
	Key              string `yaml:"key,omitempty" mapstructure:"key"`
}

// CacheConfig controls the last-known-good catalog snapshot
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"` // Empty keeps the snapshot in memory only
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OCRConfig configures the text recognizer used by scan
type OCRConfig struct {
	Provider      string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, static, "" (disabled)
	Model         string        `yaml:"model" mapstructure:"model"`
	APIKey        string        `yaml:"-" mapstructure:"api_key"`
	BaseURL       string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxImageBytes int64         `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`
	MaxTokens     int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Attempts      int           `yaml:"attempts" mapstructure:"attempts"`                 // Tries per image, transient errors only
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`             // Provider calls per second, 0 is unlimited
	StaticText    string        `yaml:"static_text,omitempty" mapstructure:"static_text"` // Text returned by the static provider
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ScanTimeout  time.Duration `yaml:"scan_timeout" mapstructure:"scan_timeout"` // Deadline for OCR + search
}

// ConcurrencyConfig sizes the worker pool used by batch
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig holds per-client rate limits
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig holds CLI output settings
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text, json
}

// DefaultScoringConfig returns the empirically tuned scorer constants
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		NormalizedExactScore:  0.95,
		NormalizedExactMinLen: 2,
		PartialCap:            0.9,
		PartialWeight:         0.85,
		FuzzyWeight:           0.7,
		FuzzySubstringBonus:   0.2,
		FuzzyLongKeywordLen:   4,
		FuzzyLongThreshold:    0.3,
		FuzzyShortThreshold:   0.5,
		MinScore:              0.2,
	}
}

// DefaultSearchConfig returns the default aggregator caps
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxKeywords:      15,
		SearchKeywords:   8,
		ScoredKeywords:   6,
		EarlyExitMatches: 10,
		MaxResults:       8,
		Strategies:       []string{"hangul_runs", "numbered", "space_collapse"},
		Scoring:          DefaultScoringConfig(),
	}
}

// DefaultConfig returns the full default configuration
func DefaultConfig() *Config {
	return &Config{
		Search: DefaultSearchConfig(),
		Catalog: CatalogConfig{
			Source:        "fallback",
			Bucket:        "additives",
			Table:         "additives",
			Policy:        "never",
			LoadTimeout:   3 * time.Second,
			RetryInterval: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     7 * 24 * time.Hour,
		},
		OCR: OCRConfig{
			Timeout:       30 * time.Second,
			MaxImageBytes: 10 << 20,
			MaxTokens:     2000,
			Attempts:      3,
			RateLimit:     2,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			ScanTimeout:  8 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		Output: OutputConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	s := c.Search
	if s.MaxKeywords <= 0 || s.SearchKeywords <= 0 || s.ScoredKeywords <= 0 || s.MaxResults <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if s.EarlyExitMatches < 0 {
		return fmt.Errorf("search.early_exit_matches must not be negative")
	}

	sc := s.Scoring
	for name, v := range map[string]float64{
		"normalized_exact_score": sc.NormalizedExactScore,
		"partial_cap":            sc.PartialCap,
		"partial_weight":         sc.PartialWeight,
		"fuzzy_weight":           sc.FuzzyWeight,
		"fuzzy_substring_bonus":  sc.FuzzySubstringBonus,
		"fuzzy_long_threshold":   sc.FuzzyLongThreshold,
		"fuzzy_short_threshold":  sc.FuzzyShortThreshold,
		"min_score":              sc.MinScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("search.scoring.%s must be within [0, 1], got %v", name, v)
		}
	}

	switch c.Catalog.Policy {
	case "", "never", "ttl", "watch":
	default:
		return fmt.Errorf("unknown catalog policy: %s (supported: never, ttl, watch)", c.Catalog.Policy)
	}
	if c.Catalog.Policy == "ttl" && c.Catalog.TTL <= 0 {
		return fmt.Errorf("catalog.ttl must be positive when policy is ttl")
	}

	if c.Catalog.LoadTimeout < 0 || c.Catalog.RetryInterval < 0 {
		return fmt.Errorf("catalog.load_timeout and catalog.retry_interval must not be negative")
	}
	// a hanging store must give way to the fallback catalog before a scan
	// deadline expires
	if c.Catalog.LoadTimeout > 0 && c.Server.ScanTimeout > 0 && c.Catalog.LoadTimeout >= c.Server.ScanTimeout {
		return fmt.Errorf("catalog.load_timeout (%v) must be shorter than server.scan_timeout (%v)",
			c.Catalog.LoadTimeout, c.Server.ScanTimeout)
	}

	if c.OCR.Attempts < 0 || c.OCR.RateLimit < 0 {
		return fmt.Errorf("ocr.attempts and ocr.rate_limit must not be negative")
	}
	if c.Concurrency.Workers < 0 {
		return fmt.Errorf("concurrency.workers must not be negative")
	}

	return nil
}
