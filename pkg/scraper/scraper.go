package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ksscraper/pkg/browser"
	"ksscraper/pkg/checkpoint"
	"ksscraper/pkg/config"
	"ksscraper/pkg/kickstarter"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/ratelimit"
	"ksscraper/pkg/session"
	"ksscraper/pkg/storage"
)

const (
	// DiscoveryFile is the discovery log inside the raw directory
	DiscoveryFile = "projects.jsonl"
	// DetailFile is the detail log inside the raw directory
	DetailFile = "project_details.jsonl"
)

// Scraper orchestrates discovery, detail enrichment and export
type Scraper struct {
	config        *config.Config
	client        KickstarterClient
	sessions      SessionSource
	checkpointMgr *checkpoint.Manager
	renderer      *browser.Renderer
	logger        logger.Logger
	now           func() time.Time

	mu        sync.Mutex
	discovery *storage.Store
	details   *storage.Store
}

// Option configures a Scraper
type Option func(*scraperOptions)

type scraperOptions struct {
	client        KickstarterClient
	sessions      SessionSource
	clientOptions []kickstarter.Option
	sessionOpts   []session.Option
	now           func() time.Time
}

// WithClient replaces the Kickstarter client
func WithClient(c KickstarterClient) Option {
	return func(o *scraperOptions) { o.client = c }
}

// WithSessions replaces the session source of the GraphQL detail pass
func WithSessions(s SessionSource) Option {
	return func(o *scraperOptions) { o.sessions = s }
}

// WithClientOptions adds options to the Kickstarter client built from config
func WithClientOptions(opts ...kickstarter.Option) Option {
	return func(o *scraperOptions) { o.clientOptions = append(o.clientOptions, opts...) }
}

// WithSessionOptions adds options to the session manager built from config
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *scraperOptions) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// WithClock sets the clock used for scraped_at timestamps
func WithClock(now func() time.Time) Option {
	return func(o *scraperOptions) { o.now = now }
}

// New creates a Scraper from cfg. Stores are opened on first use.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, errors.New("scraper: nil config")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	o := &scraperOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	s := &Scraper{
		config:        cfg,
		client:        o.client,
		sessions:      o.sessions,
		checkpointMgr: checkpoint.NewManager(cfg.CheckpointPath(), log),
		logger:        log,
		now:           o.now,
	}

	if s.client == nil {
		clientOpts := []kickstarter.Option{
			kickstarter.WithLimiter(ratelimit.NewInterval(cfg.Scraping.RateLimitRPS)),
			kickstarter.WithMaxRetries(cfg.Scraping.MaxRetries),
			kickstarter.WithUserAgent(cfg.Scraping.UserAgent),
		}
		if cfg.Scraping.BrowserFallback {
			s.renderer = browser.NewRenderer(browser.Config{Settle: 2 * time.Second}, log)
			clientOpts = append(clientOpts, kickstarter.WithRenderer(s.renderer))
		}
		clientOpts = append(clientOpts, o.clientOptions...)
		client := kickstarter.NewClient(cfg.Scraping.BaseURL, cfg.Scraping.Timeout, log, clientOpts...)
		s.client = client

		if s.sessions == nil {
			sessionOpts := []session.Option{}
			if cfg.Detail.SessionBackoff > 0 {
				sessionOpts = append(sessionOpts, session.WithBackoff(cfg.Detail.SessionBackoff))
			}
			sessionOpts = append(sessionOpts, o.sessionOpts...)
			s.sessions = session.NewManager(client, log, sessionOpts...)
		}
	}
	if s.sessions == nil {
		return nil, errors.New("scraper: a custom client needs a session source")
	}

	s.logger.DebugWithFields("Scraper initialized", map[string]interface{}{
		"base_url":    s.client.BaseURL(),
		"raw_dir":     cfg.Output.RawDir,
		"export_dir":  cfg.Output.ExportDir,
		"detail_mode": cfg.Detail.Mode,
	})
	return s, nil
}

// DiscoveryPath returns the discovery log path
func (s *Scraper) DiscoveryPath() string {
	return filepath.Join(s.config.Output.RawDir, DiscoveryFile)
}

// DetailPath returns the detail log path
func (s *Scraper) DetailPath() string {
	return filepath.Join(s.config.Output.RawDir, DetailFile)
}

// Checkpoint returns the discovery checkpoint
func (s *Scraper) Checkpoint() *checkpoint.Manager {
	return s.checkpointMgr
}

func (s *Scraper) discoveryStore() (*storage.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discovery == nil {
		st, err := storage.Open(s.DiscoveryPath(), s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open discovery store: %w", err)
		}
		s.discovery = st
	}
	return s.discovery, nil
}

func (s *Scraper) detailStore() (*storage.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.details == nil {
		st, err := storage.Open(s.DetailPath(), s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open detail store: %w", err)
		}
		s.details = st
	}
	return s.details, nil
}

// resetDetails backs up and removes the detail log so every record is
// enriched again
func (s *Scraper) resetDetails() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.details != nil {
		if err := s.details.Close(); err != nil {
			return fmt.Errorf("failed to close detail store: %w", err)
		}
		s.details = nil
	}

	backup, err := storage.Reset(s.DetailPath())
	if err != nil {
		return fmt.Errorf("failed to reset detail store: %w", err)
	}
	if backup != "" {
		s.logger.InfoWithFields("Previous detail log backed up", map[string]interface{}{
			"backup": backup,
		})
	}
	return nil
}

// Close releases the stores and the browser
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errList []error
	if s.discovery != nil {
		errList = append(errList, s.discovery.Close())
		s.discovery = nil
	}
	if s.details != nil {
		errList = append(errList, s.details.Close())
		s.details = nil
	}
	if s.renderer != nil {
		errList = append(errList, s.renderer.Close())
	}
	return errors.Join(errList...)
}

// Run executes discovery, detail enrichment when enabled, and export
func (s *Scraper) Run(ctx context.Context) error {
	if _, err := s.RunDiscovery(ctx); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	if s.config.Scraping.FetchProjectDetails {
		if _, err := s.RunDetails(ctx, false); err != nil {
			return fmt.Errorf("details: %w", err)
		}
	}

	if _, err := s.Export(ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func detailMode(cfg *config.Config) string {
	return strings.ToLower(cfg.Detail.Mode)
}
