package kickstarter

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/models"
	"ksscraper/pkg/session"
)

// PostGraphQL fetches the detail project node for slug. The request carries
// the session token and is bound to the session cookie jar. A response with
// an errors field or without a project fails with a graphql error.
func (c *Client) PostGraphQL(ctx context.Context, sess *session.Session, slug string) (*models.GraphProject, error) {
	if sess == nil || sess.Token == "" {
		return nil, errs.New(errs.ErrorTypeSession, 0, "no session")
	}

	url := GraphURL(c.baseURL)
	body := graphRequest{
		Query:     ProjectQuery,
		Variables: map[string]string{"slug": slug},
	}
	client := c.boundClient(sess.Jar)

	var out graphResponse
	err := c.execute(ctx, http.MethodPost, url, c.graphAttempts,
		func() (*resty.Response, error) {
			out = graphResponse{}
			return client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetHeader("Accept", "application/json").
				SetHeader("X-CSRF-Token", sess.Token).
				SetHeader("Referer", sess.SeedURL).
				SetBody(body).
				Post(url)
		},
		func(b []byte) error { return decodeJSON(b, &out) },
	)
	if err != nil {
		return nil, err
	}

	if len(out.Errors) > 0 {
		msg := out.Errors[0].Message
		if len(msg) > 100 {
			msg = msg[:100]
		}
		return nil, errs.New(errs.ErrorTypeGraphQL, http.StatusOK, msg)
	}
	if out.Data == nil || out.Data.Project == nil {
		return nil, errs.New(errs.ErrorTypeGraphQL, http.StatusOK, fmt.Sprintf("no project for slug %q", slug))
	}
	return out.Data.Project, nil
}

var (
	joinedMetaRegex = regexp.MustCompile(`property="joined"\s+content="([^"]+)"`)
	joinedTimeRegex = regexp.MustCompile(`(?s)Joined.*?<time\s+datetime="([^"]+)"`)
	dateRegex       = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// CreatorJoinedAt loads a creator profile and returns the join date as
// YYYY-MM-DD, or "" when it cannot be found. With a session the page is
// loaded with its cookies and rendered by the browser if that is refused;
// without one it goes through FetchHTML. Failures other than cancellation
// are logged and yield "".
func (c *Client) CreatorJoinedAt(ctx context.Context, sess *session.Session, creatorSlug string) (string, error) {
	url := ProfileURL(c.baseURL, creatorSlug)
	if url == "" {
		return "", nil
	}

	var body string
	var err error
	if sess != nil {
		var status int
		status, body, err = c.GetWithJar(ctx, url, sess.Jar)
		if err == nil && status != http.StatusOK {
			err = errs.New(errs.ErrorTypeBlocked, status, fmt.Sprintf("unexpected status %d", status))
		}
		if err != nil && ctx.Err() == nil {
			body, err = c.render(ctx, url, err)
		}
	} else {
		body, err = c.FetchHTML(ctx, url)
	}

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.DebugWithFields("could not load creator profile", map[string]interface{}{
			"creator": creatorSlug,
			"error":   err.Error(),
		})
		return "", nil
	}
	return ExtractJoinedAt(body), nil
}

// ExtractJoinedAt finds the join date on a profile page
func ExtractJoinedAt(html string) string {
	raw := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		raw = doc.Find(`meta[property="joined"]`).AttrOr("content", "")
	}
	if raw == "" {
		if m := joinedMetaRegex.FindStringSubmatch(html); len(m) > 1 {
			raw = m[1]
		} else if m := joinedTimeRegex.FindStringSubmatch(html); len(m) > 1 {
			raw = m[1]
		}
	}

	raw = strings.TrimSpace(raw)
	if m := dateRegex.FindStringSubmatch(raw); len(m) > 1 {
		return m[1]
	}
	return raw
}
