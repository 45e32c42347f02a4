package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/logger"
)

type fakeFetcher struct {
	pages []string
	errs  []error
	calls int
	jars  []http.CookieJar
}

func (f *fakeFetcher) GetWithJar(ctx context.Context, url string, jar http.CookieJar) (int, string, error) {
	i := f.calls
	f.calls++
	f.jars = append(f.jars, jar)
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, "", f.errs[i]
	}
	if i < len(f.pages) {
		return http.StatusOK, f.pages[i], nil
	}
	return http.StatusForbidden, "<html>blocked</html>", nil
}

const tokenPage = `<html><head><meta name="csrf-token" content="tok-123"></head><body></body></html>`

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"meta tag", tokenPage, "tok-123"},
		{"attribute order", `<meta content="abc" name="csrf-token">`, "abc"},
		{"missing", `<html><head><title>Just a moment...</title></head></html>`, ""},
		{"empty content", `<meta name="csrf-token" content="">`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractToken(tt.html))
		})
	}
}

func TestEstablish(t *testing.T) {
	fetcher := &fakeFetcher{pages: []string{tokenPage}}
	m := NewManager(fetcher, logger.NewNopLogger())

	sess, err := m.Establish(context.Background(), "https://ks.test/projects/a")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", sess.Token)
	assert.NotNil(t, sess.Jar)
	assert.Same(t, fetcher.jars[0], sess.Jar)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEstablishRetriesUntilToken(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: []string{"", "<html>challenge</html>", tokenPage},
		errs:  []error{errors.New("connection reset")},
	}
	m := NewManager(fetcher, logger.NewNopLogger(), WithBackoff(time.Millisecond))

	sess, err := m.Establish(context.Background(), "https://ks.test/projects/a")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", sess.Token)
	assert.Equal(t, 3, fetcher.calls)
	assert.NotSame(t, fetcher.jars[0], fetcher.jars[2], "every attempt starts from a fresh jar")
}

func TestEstablishGivesUp(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := NewManager(fetcher, logger.NewNopLogger(), WithBackoff(time.Millisecond), WithAttempts(3))

	_, err := m.Establish(context.Background(), "https://ks.test/projects/a")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeSession))
	assert.Equal(t, 3, fetcher.calls)
}

func TestEstablishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(&fakeFetcher{}, logger.NewNopLogger())
	_, err := m.Establish(ctx, "https://ks.test/projects/a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRotation(t *testing.T) {
	r := NewRotation(3)

	assert.False(t, r.RefreshDue())
	r.Success()
	r.Success()
	assert.False(t, r.RefreshDue())
	r.Success()
	assert.True(t, r.RefreshDue())
	r.Refreshed()
	assert.False(t, r.RefreshDue())

	assert.Equal(t, Skip, r.Failure())
	assert.Equal(t, RefreshAndRetry, r.Failure())
	for i := 3; i < 10; i++ {
		assert.Equal(t, RefreshAndRetry, r.Failure(), "failure %d", i)
	}
	assert.Equal(t, Cooldown, r.Failure())
	assert.Equal(t, 10, r.Consecutive())

	r.CooledDown()
	assert.Equal(t, 0, r.Consecutive())
	assert.Equal(t, Skip, r.Failure())

	r.Success()
	assert.Equal(t, 0, r.Consecutive())
}
