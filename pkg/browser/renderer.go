package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"ksscraper/pkg/logger"
)

// Config configures a Renderer
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local headless Chrome on first use.
	RemoteURL string

	// NavigateTimeout bounds one render. Default: 45s.
	NavigateTimeout time.Duration

	// Settle is waited after the load event so challenge scripts can finish
	Settle time.Duration
}

// Renderer loads pages in a stealth-patched headless Chrome. The browser
// starts lazily on the first Render and is shared by later calls.
type Renderer struct {
	cfg    Config
	logger logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewRenderer creates a Renderer. No process is started until Render.
func NewRenderer(cfg Config, log logger.Logger) *Renderer {
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 45 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Renderer{cfg: cfg, logger: log}
}

func (r *Renderer) ensure() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("browser: renderer is closed")
	}
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.logger.InfoWithFields("Launched headless browser", map[string]interface{}{"url": wsURL})
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.killLocked()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	r.browser = b
	return b, nil
}

// Render navigates to url in a fresh stealth tab and returns the page HTML
// once it has loaded
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	b, err := r.ensure()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigateTimeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		r.logger.WarnWithFields("Browser load wait failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	if r.cfg.Settle > 0 {
		select {
		case <-navCtx.Done():
			return "", navCtx.Err()
		case <-time.After(r.cfg.Settle):
		}
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("browser: read %s: %w", url, err)
	}
	r.logger.DebugWithFields("Rendered page", map[string]interface{}{
		"url":   url,
		"bytes": len(html),
	})
	return html, nil
}

// Close shuts the browser down. Later Render calls fail.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.killLocked()
	return err
}

func (r *Renderer) killLocked() {
	if r.lnch != nil {
		r.lnch.Kill()
		r.lnch.Cleanup()
		r.lnch = nil
	}
}
