package kickstarter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/models"
	"ksscraper/pkg/ratelimit"
	"ksscraper/pkg/retry"
)

// Renderer renders a page in a real browser. It is the fallback of the
// HTML fetch path.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Client talks to the Kickstarter JSON, HTML and GraphQL endpoints
type Client struct {
	http     *resty.Client
	baseURL  string
	headers  map[string]string
	timeout  time.Duration
	limiter  ratelimit.Limiter
	policy   retry.StatusPolicy
	renderer Renderer
	logger   logger.Logger

	maxRetries    int
	graphAttempts int
}

// Option configures a Client
type Option func(*Client)

// WithLimiter shares a limiter between clients
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithPolicy replaces the status policy delays
func WithPolicy(p retry.StatusPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMaxRetries sets the attempt bound of JSON fetches
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithGraphAttempts sets the attempt bound of GraphQL calls. It defaults to
// one because failed detail fetches are escalated by the caller.
func WithGraphAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.graphAttempts = n
		}
	}
}

// WithRenderer enables the browser fallback for HTML pages
func WithRenderer(r Renderer) Option {
	return func(c *Client) { c.renderer = r }
}

// WithUserAgent overrides the browser user agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers["User-Agent"] = ua
		}
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

// NewClient creates a new Kickstarter client
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = BaseURL
	}

	c := &Client{
		http:    resty.New(),
		baseURL: baseURL,
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"Sec-Fetch-Dest":  "document",
			"Sec-Fetch-Mode":  "navigate",
			"Sec-Fetch-Site":  "none",
		},
		timeout:       timeout,
		limiter:       ratelimit.NewInterval(1.0),
		policy:        retry.DefaultStatusPolicy(),
		logger:        log,
		maxRetries:    3,
		graphAttempts: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.SetTimeout(timeout)
	c.http.SetHeaders(c.headers)
	c.http.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(c.http.GetClient().Transport)

	return c
}

// BaseURL returns the site root the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// boundClient returns a client sharing the transport and headers but
// carrying its own cookie jar
func (c *Client) boundClient(jar http.CookieJar) *resty.Client {
	hc := &http.Client{
		Transport: c.http.GetClient().Transport,
		Jar:       jar,
		Timeout:   c.timeout,
	}
	return resty.NewWithClient(hc).SetHeaders(c.headers)
}

// execute runs one logical request under the status policy. decode is
// applied to 200 bodies; a decode error marks the attempt malformed.
func (c *Client) execute(ctx context.Context, method, url string, attempts int, send func() (*resty.Response, error), decode func([]byte) error) error {
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		resp, err := send()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome := retry.Attempt{Err: err}
		if err == nil {
			outcome.Status = resp.StatusCode()
			logger.LogRequest(c.logger, method, url, outcome.Status, time.Since(start))
			if outcome.Status == http.StatusOK && decode != nil {
				if derr := decode(resp.Body()); derr != nil {
					outcome.Malformed = true
					c.logger.WarnWithFields("Response body did not decode", map[string]interface{}{
						"url":          url,
						"error":        derr.Error(),
						"body_preview": preview(resp.Body()),
					})
				}
			}
		} else {
			c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
				"method": method,
				"url":    url,
				"error":  err.Error(),
			})
		}

		d := c.policy.Decide(attempt, attempts, outcome)
		switch d.Verdict {
		case retry.Succeed:
			return nil
		case retry.Fail:
			return d.Err
		}

		logger.LogRetry(c.logger, url, attempt, attempts, outcome.Status, d.Delay)
		if err := retry.Wait(ctx, d.Delay); err != nil {
			return err
		}
	}
	return errs.New(errs.ErrorTypeBlocked, 0, "no attempts made")
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}

func decodeJSON(body []byte, target interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(target)
}

// FetchJSON GETs url and decodes the JSON body into target, retrying per
// the status policy
func (c *Client) FetchJSON(ctx context.Context, url string, target interface{}) error {
	return c.execute(ctx, http.MethodGet, url, c.maxRetries,
		func() (*resty.Response, error) {
			return c.http.R().
				SetContext(ctx).
				SetHeader("Accept", "application/json").
				Get(url)
		},
		func(body []byte) error { return decodeJSON(body, target) },
	)
}

// FetchHTML GETs a page once. When that attempt fails or does not return
// 200 the page is rendered by the browser fallback, if one is configured.
func (c *Client) FetchHTML(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var primaryErr error
	switch {
	case err != nil:
		primaryErr = errs.Wrap(errs.ErrorTypeNetwork, 0, "request failed", err)
	case resp.StatusCode() != http.StatusOK:
		logger.LogRequest(c.logger, http.MethodGet, url, resp.StatusCode(), time.Since(start))
		primaryErr = errs.New(errs.ErrorTypeBlocked, resp.StatusCode(), fmt.Sprintf("unexpected status %d", resp.StatusCode()))
	default:
		logger.LogRequest(c.logger, http.MethodGet, url, resp.StatusCode(), time.Since(start))
		return resp.String(), nil
	}

	return c.render(ctx, url, primaryErr)
}

// render is the browser fallback; cause is returned when no renderer is set
func (c *Client) render(ctx context.Context, url string, cause error) (string, error) {
	if c.renderer == nil {
		return "", cause
	}

	c.logger.WarnWithFields("Falling back to browser render", map[string]interface{}{
		"url":   url,
		"cause": cause.Error(),
	})
	html, err := c.renderer.Render(ctx, url)
	if err != nil {
		return "", fmt.Errorf("browser fallback for %s: %w", url, err)
	}
	return html, nil
}

// GetWithJar performs one paced GET bound to jar and returns the status and
// body. It does not retry.
func (c *Client) GetWithJar(ctx context.Context, url string, jar http.CookieJar) (int, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, "", err
	}

	start := time.Now()
	resp, err := c.boundClient(jar).R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, "", errs.Wrap(errs.ErrorTypeNetwork, 0, "request failed", err)
	}
	logger.LogRequest(c.logger, http.MethodGet, url, resp.StatusCode(), time.Since(start))
	return resp.StatusCode(), resp.String(), nil
}

// Discover fetches one discovery page
func (c *Client) Discover(ctx context.Context, q DiscoverQuery) (*DiscoverResponse, error) {
	url := DiscoverURL(c.baseURL, q)
	c.logger.DebugWithFields("fetching discovery page", map[string]interface{}{
		"term":  q.Term,
		"state": q.State,
		"page":  q.Page,
	})

	var out DiscoverResponse
	if err := c.FetchJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject fetches the project JSON for a slug
func (c *Client) GetProject(ctx context.Context, slug string) (models.RawRecord, error) {
	var out models.RawRecord
	if err := c.FetchJSON(ctx, ProjectURL(c.baseURL, slug), &out); err != nil {
		return nil, err
	}
	// some responses wrap the project object
	if inner := out.Map("project"); inner != nil {
		if _, ok := inner.ID(); ok {
			return inner, nil
		}
	}
	return out, nil
}
