package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/retry"
)

// Session is a browsing session: cookies and the anti-forgery token that
// must accompany them
type Session struct {
	Jar           http.CookieJar
	Token         string
	SeedURL       string
	EstablishedAt time.Time
}

// PageFetcher performs one GET bound to a cookie jar
type PageFetcher interface {
	GetWithJar(ctx context.Context, url string, jar http.CookieJar) (int, string, error)
}

// Manager obtains and refreshes sessions
type Manager struct {
	fetcher  PageFetcher
	attempts int
	backoff  retry.BackoffStrategy
	logger   logger.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithAttempts sets how many page loads are tried before giving up
func WithAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithBackoff sets the base delay between page loads; it doubles per attempt
func WithBackoff(base time.Duration) Option {
	return func(m *Manager) {
		m.backoff = retry.Doubling(base, 0)
	}
}

// NewManager creates a session manager
func NewManager(fetcher PageFetcher, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	m := &Manager{
		fetcher:  fetcher,
		attempts: 3,
		backoff:  retry.Doubling(30*time.Second, 0),
		logger:   log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var errNoToken = errs.New(errs.ErrorTypeSession, 0, "no csrf token in page")

// Establish loads seedURL with a fresh cookie jar and extracts the token.
// A page without a token is retried with a doubling backoff; running out of
// attempts returns a session error.
func (m *Manager) Establish(ctx context.Context, seedURL string) (*Session, error) {
	var lastStatus int

	cfg := retry.Config{
		Attempts: m.attempts,
		Backoff:  m.backoff,
		RetryIf:  func(error) bool { return ctx.Err() == nil },
		Logger:   m.logger,
	}
	sess, err := retry.DoValue(ctx, cfg, func(ctx context.Context, attempt int) (*Session, error) {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}

		status, body, err := m.fetcher.GetWithJar(ctx, seedURL, jar)
		if err != nil {
			return nil, err
		}
		lastStatus = status

		token := ExtractToken(body)
		if token == "" {
			m.logger.WarnWithFields("No csrf token in page", map[string]interface{}{
				"url":     seedURL,
				"status":  status,
				"attempt": attempt,
			})
			return nil, errNoToken
		}
		return &Session{Jar: jar, Token: token, SeedURL: seedURL, EstablishedAt: time.Now()}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeSession, lastStatus,
			fmt.Sprintf("could not obtain csrf token after %d attempts", m.attempts), err)
	}

	m.logger.InfoWithFields("Session established", map[string]interface{}{"url": seedURL})
	return sess, nil
}

// Refresh replaces a session; it is Establish under another name
func (m *Manager) Refresh(ctx context.Context, seedURL string) (*Session, error) {
	return m.Establish(ctx, seedURL)
}

var tokenRegex = regexp.MustCompile(`<meta\s+name="csrf-token"\s+content="([^"]+)"`)

// ExtractToken returns the csrf-token meta content of a page, or ""
func ExtractToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if token := strings.TrimSpace(doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")); token != "" {
			return token
		}
	}
	if m := tokenRegex.FindStringSubmatch(html); len(m) > 1 {
		return m[1]
	}
	return ""
}
