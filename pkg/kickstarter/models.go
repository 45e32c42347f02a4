package kickstarter

import (
	"encoding/json"

	"ksscraper/pkg/models"
)

// DiscoverResponse is one page of the discovery endpoint
type DiscoverResponse struct {
	Projects  []models.RawRecord `json:"projects"`
	TotalHits int                `json:"total_hits"`
	// HasMore is nil when the source did not say
	HasMore *bool `json:"has_more"`
	// Seed is returned by the source for stable ordering across pages
	Seed json.Number `json:"seed"`
}

type graphRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphError struct {
	Message string `json:"message"`
}

type graphResponse struct {
	Data *struct {
		Project *models.GraphProject `json:"project"`
	} `json:"data"`
	Errors []graphError `json:"errors"`
}

// ProjectQuery selects every field the detail record is built from
const ProjectQuery = `query Project($slug: String!) {
  project(slug: $slug) {
    story(assetWidth: 680)
    risks
    description
    backersCount
    goal { amount currency symbol }
    pledged { amount currency symbol }
    state
    stateChangedAt
    launchedAt
    deadlineAt
    duration
    location { displayableName name country countryName state }
    creator {
      id
      name
      slug
      url
      imageUrl(width: 80)
      biography
      websites { url }
      backingsCount
      launchedProjects { totalCount }
      location { displayableName name country countryName state }
    }
    commentsCount
    posts { totalCount }
    watchesCount
    video { videoSources { high { src } } }
    isProjectWeLove
    faqs { nodes { question answer } }
    rewards {
      nodes {
        name
        description
        amount { amount currency }
        backersCount
        estimatedDeliveryOn
      }
    }
  }
}`
