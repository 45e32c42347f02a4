package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Kickstarter scraper
type Config struct {
	// Discovery search space
	Search SearchConfig `yaml:"search" json:"search"`

	// Transport, pacing and retry settings
	Scraping ScrapingConfig `yaml:"scraping" json:"scraping"`

	// Detail enrichment pass
	Detail DetailConfig `yaml:"detail" json:"detail"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Relevance filtering
	Filtering FilteringConfig `yaml:"filtering" json:"filtering"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig defines which search keys discovery walks
type SearchConfig struct {
	Terms               []string `yaml:"terms" json:"terms"`
	States              []string `yaml:"states" json:"states"`
	CategoryIDs         []int    `yaml:"category_ids" json:"category_ids"`
	SearchAllCategories bool     `yaml:"search_all_categories" json:"search_all_categories"`
	Sort                string   `yaml:"sort" json:"sort"`
	PerPage             int      `yaml:"per_page" json:"per_page"`
	MaxPages            int      `yaml:"max_pages" json:"max_pages"`
}

// ScrapingConfig holds HTTP transport and retry configuration
type ScrapingConfig struct {
	BaseURL             string        `yaml:"base_url" json:"base_url"`
	RateLimitRPS        float64       `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	PageDelay           time.Duration `yaml:"page_delay" json:"page_delay"`
	UserAgent           string        `yaml:"user_agent" json:"user_agent"`
	BrowserFallback     bool          `yaml:"browser_fallback" json:"browser_fallback"`
	FetchProjectDetails bool          `yaml:"fetch_project_details" json:"fetch_project_details"`
}

// DetailConfig holds the detail pass settings
type DetailConfig struct {
	// Mode is "graphql" or "json"
	Mode                string        `yaml:"mode" json:"mode"`
	CSRFRefreshInterval int           `yaml:"csrf_refresh_interval" json:"csrf_refresh_interval"`
	OnlyRelevant        bool          `yaml:"only_relevant" json:"only_relevant"`
	RecordDelay         time.Duration `yaml:"record_delay" json:"record_delay"`
	CreatorDelay        time.Duration `yaml:"creator_delay" json:"creator_delay"`
	FailureBackoff      time.Duration `yaml:"failure_backoff" json:"failure_backoff"`
	MaxFailureBackoff   time.Duration `yaml:"max_failure_backoff" json:"max_failure_backoff"`
	RefreshSettle       time.Duration `yaml:"refresh_settle" json:"refresh_settle"`
	HardBlockPause      time.Duration `yaml:"hard_block_pause" json:"hard_block_pause"`
	SessionBackoff      time.Duration `yaml:"session_backoff" json:"session_backoff"`
}

// OutputConfig holds output file locations
type OutputConfig struct {
	RawDir         string `yaml:"raw_dir" json:"raw_dir"`
	ExportDir      string `yaml:"export_dir" json:"export_dir"`
	CheckpointFile string `yaml:"checkpoint_file" json:"checkpoint_file"`
	IncludeText    bool   `yaml:"include_text" json:"include_text"`
}

// FilteringConfig holds relevance filtering configuration
type FilteringConfig struct {
	MinRelevanceScore float64 `yaml:"min_relevance_score" json:"min_relevance_score"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	// Format is "auto", "console" or "json"
	Format string `yaml:"format" json:"format"`
}

const (
	DetailModeGraphQL = "graphql"
	DetailModeJSON    = "json"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Terms: []string{
				"AI", "artificial intelligence", "machine learning", "GPT",
				"chatbot", "neural network", "deep learning", "LLM",
			},
			States:              []string{"live", "successful", "failed", "canceled"},
			SearchAllCategories: true,
			Sort:                "newest",
			PerPage:             20,
			MaxPages:            0,
		},
		Scraping: ScrapingConfig{
			BaseURL:             "https://www.kickstarter.com",
			RateLimitRPS:        1.0,
			MaxRetries:          3,
			Timeout:             30 * time.Second,
			PageDelay:           1500 * time.Millisecond,
			UserAgent:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			BrowserFallback:     true,
			FetchProjectDetails: true,
		},
		Detail: DetailConfig{
			Mode:                DetailModeGraphQL,
			CSRFRefreshInterval: 50,
			OnlyRelevant:        false,
			RecordDelay:         0,
			CreatorDelay:        1500 * time.Millisecond,
			FailureBackoff:      10 * time.Second,
			MaxFailureBackoff:   120 * time.Second,
			RefreshSettle:       3 * time.Second,
			HardBlockPause:      5 * time.Minute,
			SessionBackoff:      30 * time.Second,
		},
		Output: OutputConfig{
			RawDir:         "data/raw",
			ExportDir:      "data/processed",
			CheckpointFile: "data/raw/checkpoint.json",
		},
		Filtering: FilteringConfig{
			MinRelevanceScore: 0.2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if terms := os.Getenv("KSSCRAPER_TERMS"); terms != "" {
		c.Search.Terms = splitList(terms)
	}
	if states := os.Getenv("KSSCRAPER_STATES"); states != "" {
		c.Search.States = splitList(states)
	}
	if baseURL := os.Getenv("KSSCRAPER_BASE_URL"); baseURL != "" {
		c.Scraping.BaseURL = baseURL
	}
	if userAgent := os.Getenv("KSSCRAPER_USER_AGENT"); userAgent != "" {
		c.Scraping.UserAgent = userAgent
	}
	if rps := os.Getenv("KSSCRAPER_RATE_LIMIT_RPS"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("KSSCRAPER_RATE_LIMIT_RPS: %w", err))
		} else {
			c.Scraping.RateLimitRPS = val
		}
	}
	if retries := os.Getenv("KSSCRAPER_MAX_RETRIES"); retries != "" {
		val, err := strconv.Atoi(retries)
		if err != nil {
			errs = append(errs, fmt.Errorf("KSSCRAPER_MAX_RETRIES: %w", err))
		} else {
			c.Scraping.MaxRetries = val
		}
	}
	if delay := os.Getenv("KSSCRAPER_PAGE_DELAY"); delay != "" {
		val, err := time.ParseDuration(delay)
		if err != nil {
			errs = append(errs, fmt.Errorf("KSSCRAPER_PAGE_DELAY: %w", err))
		} else {
			c.Scraping.PageDelay = val
		}
	}
	if fallback := os.Getenv("KSSCRAPER_BROWSER_FALLBACK"); fallback != "" {
		c.Scraping.BrowserFallback = strings.ToLower(fallback) == "true"
	}
	if mode := os.Getenv("KSSCRAPER_DETAIL_MODE"); mode != "" {
		c.Detail.Mode = mode
	}
	if rawDir := os.Getenv("KSSCRAPER_RAW_DIR"); rawDir != "" {
		c.Output.RawDir = rawDir
	}
	if exportDir := os.Getenv("KSSCRAPER_EXPORT_DIR"); exportDir != "" {
		c.Output.ExportDir = exportDir
	}
	if cp := os.Getenv("KSSCRAPER_CHECKPOINT_FILE"); cp != "" {
		c.Output.CheckpointFile = cp
	}
	if score := os.Getenv("KSSCRAPER_MIN_RELEVANCE_SCORE"); score != "" {
		val, err := strconv.ParseFloat(score, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("KSSCRAPER_MIN_RELEVANCE_SCORE: %w", err))
		} else {
			c.Filtering.MinRelevanceScore = val
		}
	}
	if logLevel := os.Getenv("KSSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("KSSCRAPER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".ksscraper.yaml",
		".ksscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "ksscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "ksscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Search.Terms) == 0 {
		errs = append(errs, errors.New("at least one search term is required"))
	}
	if len(c.Search.States) == 0 {
		errs = append(errs, errors.New("at least one project state is required"))
	}
	if c.Search.PerPage <= 0 {
		errs = append(errs, errors.New("per page must be positive"))
	}
	if c.Search.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	if c.Scraping.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Scraping.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit cannot be negative"))
	}
	if c.Scraping.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.Scraping.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Scraping.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	switch strings.ToLower(c.Detail.Mode) {
	case DetailModeGraphQL, DetailModeJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid detail mode %q", c.Detail.Mode))
	}
	if c.Detail.CSRFRefreshInterval <= 0 {
		errs = append(errs, errors.New("csrf refresh interval must be positive"))
	}

	if c.Output.RawDir == "" {
		errs = append(errs, errors.New("raw output directory is required"))
	}
	if c.Output.ExportDir == "" {
		errs = append(errs, errors.New("export directory is required"))
	}

	if c.Filtering.MinRelevanceScore < 0 || c.Filtering.MinRelevanceScore > 1 {
		errs = append(errs, errors.New("min relevance score must be within [0, 1]"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only non-zero values override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if terms, ok := flags["terms"].([]string); ok && len(terms) > 0 {
		c.Search.Terms = terms
	}
	if states, ok := flags["states"].([]string); ok && len(states) > 0 {
		c.Search.States = states
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Search.MaxPages = maxPages
	}
	if rps, ok := flags["rps"].(float64); ok && rps > 0 {
		c.Scraping.RateLimitRPS = rps
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Scraping.BaseURL = baseURL
	}
	if noDetails, ok := flags["no-details"].(bool); ok && noDetails {
		c.Scraping.FetchProjectDetails = false
	}
	if noBrowser, ok := flags["no-browser"].(bool); ok && noBrowser {
		c.Scraping.BrowserFallback = false
	}
	if mode, ok := flags["detail-mode"].(string); ok && mode != "" {
		c.Detail.Mode = mode
	}
	if onlyRelevant, ok := flags["only-relevant"].(bool); ok && onlyRelevant {
		c.Detail.OnlyRelevant = true
	}
	if rawDir, ok := flags["raw-dir"].(string); ok && rawDir != "" {
		c.Output.RawDir = rawDir
	}
	if exportDir, ok := flags["export-dir"].(string); ok && exportDir != "" {
		c.Output.ExportDir = exportDir
	}
	if includeText, ok := flags["include-text"].(bool); ok && includeText {
		c.Output.IncludeText = true
	}
	if minScore, ok := flags["min-score"].(float64); ok && minScore > 0 {
		c.Filtering.MinRelevanceScore = minScore
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// CheckpointPath returns the checkpoint location, defaulting into the raw dir
func (c *Config) CheckpointPath() string {
	if c.Output.CheckpointFile != "" {
		return c.Output.CheckpointFile
	}
	return filepath.Join(c.Output.RawDir, "checkpoint.json")
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ksscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
