package scraper

import (
	"context"

	"ksscraper/pkg/kickstarter"
	"ksscraper/pkg/models"
	"ksscraper/pkg/session"
)

// KickstarterClient defines the Kickstarter operations the scraper drives
type KickstarterClient interface {
	BaseURL() string
	Discover(ctx context.Context, q kickstarter.DiscoverQuery) (*kickstarter.DiscoverResponse, error)
	GetProject(ctx context.Context, slug string) (models.RawRecord, error)
	PostGraphQL(ctx context.Context, sess *session.Session, slug string) (*models.GraphProject, error)
	CreatorJoinedAt(ctx context.Context, sess *session.Session, creatorSlug string) (string, error)
}

// SessionSource obtains browsing sessions for the GraphQL detail pass
type SessionSource interface {
	Establish(ctx context.Context, seedURL string) (*session.Session, error)
	Refresh(ctx context.Context, seedURL string) (*session.Session, error)
}
