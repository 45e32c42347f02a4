package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is one project object exactly as the source returned it
type RawRecord map[string]interface{}

// ID returns the integer id of the record. JSON numbers decoded as
// float64 or json.Number and numeric strings are accepted.
func (r RawRecord) ID() (int64, bool) {
	return toInt64(r["id"])
}

// Slug returns the URL slug, or "" if absent
func (r RawRecord) Slug() string {
	return r.String("slug")
}

// String returns the value at key when it is a string
func (r RawRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map returns the nested object at key, or nil
func (r RawRecord) Map(key string) RawRecord {
	switch v := r[key].(type) {
	case map[string]interface{}:
		return RawRecord(v)
	case RawRecord:
		return v
	}
	return nil
}

// Float returns the numeric value at key
func (r RawRecord) Float(key string) (float64, bool) {
	return toFloat64(r[key])
}

// Int returns the integer value at key
func (r RawRecord) Int(key string) (int64, bool) {
	return toInt64(r[key])
}

// Bool reports whether the value at key is truthy
func (r RawRecord) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		return v != ""
	default:
		f, ok := toFloat64(v)
		return ok && f != 0
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// ToRecord converts any JSON-serialisable value into a RawRecord
func ToRecord(v interface{}) (RawRecord, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec RawRecord
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SearchKey identifies one unit of discovery work
type SearchKey struct {
	Term       string
	State      string
	CategoryID int
}

// String renders the checkpoint token, "term|state" or "term|state|category"
func (k SearchKey) String() string {
	if k.CategoryID > 0 {
		return fmt.Sprintf("%s|%s|%d", k.Term, k.State, k.CategoryID)
	}
	return k.Term + "|" + k.State
}

// Location is a project or creator location
type Location struct {
	Name        string `json:"name,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Creator is a project creator profile
type Creator struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Slug                 string    `json:"slug,omitempty"`
	URL                  string    `json:"url,omitempty"`
	AvatarURL            string    `json:"avatar_url,omitempty"`
	Location             *Location `json:"location,omitempty"`
	CreatedProjectsCount *int64    `json:"created_projects_count,omitempty"`
	BackedProjectsCount  *int64    `json:"backed_projects_count,omitempty"`
	IsVerified           *bool     `json:"is_verified,omitempty"`
	Biography            string    `json:"biography,omitempty"`
	Websites             []string  `json:"websites,omitempty"`
	JoinedAt             string    `json:"joined_at,omitempty"`
}

// Reward is one pledge tier
type Reward struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title,omitempty"`
	Description       string  `json:"description,omitempty"`
	MinimumPledge     float64 `json:"minimum_pledge"`
	Currency          string  `json:"currency,omitempty"`
	BackersCount      int64   `json:"backers_count"`
	EstimatedDelivery string  `json:"estimated_delivery,omitempty"`
	Limited           bool    `json:"limited"`
	Limit             *int64  `json:"limit,omitempty"`
	Remaining         *int64  `json:"remaining,omitempty"`
	ShippingType      string  `json:"shipping_type,omitempty"`
}

// Project is the typed, parsed form of a RawRecord
type Project struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug,omitempty"`
	URL  string `json:"url,omitempty"`

	Name            string `json:"name"`
	Blurb           string `json:"blurb,omitempty"`
	CategoryName    string `json:"category_name,omitempty"`
	CategorySlug    string `json:"category_slug,omitempty"`
	CategoryParent  string `json:"category_parent,omitempty"`
	SubcategoryName string `json:"subcategory_name,omitempty"`

	Goal          float64  `json:"goal"`
	Pledged       float64  `json:"pledged"`
	Currency      string   `json:"currency,omitempty"`
	USDPledged    *float64 `json:"usd_pledged,omitempty"`
	FXRate        *float64 `json:"fx_rate,omitempty"`
	BackersCount  int64    `json:"backers_count"`
	State         string   `json:"state"`
	PercentFunded float64  `json:"percent_funded"`

	LaunchedAt     *time.Time `json:"launched_at,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	StateChangedAt *time.Time `json:"state_changed_at,omitempty"`

	Country  string    `json:"country,omitempty"`
	Location *Location `json:"location,omitempty"`

	Description          string `json:"description,omitempty"`
	DescriptionWordCount *int   `json:"description_word_count,omitempty"`
	RisksAndChallenges   string `json:"risks_and_challenges,omitempty"`

	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	HasVideo bool   `json:"has_video"`

	CommentsCount *int64 `json:"comments_count,omitempty"`
	UpdatesCount  *int64 `json:"updates_count,omitempty"`
	WatchesCount  *int64 `json:"watches_count,omitempty"`
	FAQCount      *int64 `json:"faq_count,omitempty"`
	Duration      *int64 `json:"duration,omitempty"`

	Creator     *Creator `json:"creator,omitempty"`
	Rewards     []Reward `json:"rewards,omitempty"`
	RewardCount int      `json:"reward_count"`

	CampaignWordCount  *int `json:"campaign_word_count,omitempty"`
	CampaignAIMentions *int `json:"campaign_ai_mentions,omitempty"`

	IsStaffPick     bool `json:"is_staff_pick"`
	IsProjectWeLove bool `json:"is_project_we_love"`
	Spotlight       bool `json:"spotlight"`

	ScrapedAt        time.Time `json:"scraped_at"`
	AIRelevanceScore *float64  `json:"ai_relevance_score,omitempty"`
}

// FAQ is one question and answer pair
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DetailReward is a reward tier as reported by the detail endpoint
type DetailReward struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Backers     int64  `json:"backers"`
	Delivery    string `json:"delivery"`
}

// ProjectDetail is one line of the detail log
type ProjectDetail struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`

	BackersCount    int64    `json:"backers_count"`
	Goal            *float64 `json:"goal"`
	GoalCurrency    string   `json:"goal_currency"`
	Pledged         *float64 `json:"pledged"`
	PledgedCurrency string   `json:"pledged_currency"`
	State           string   `json:"state"`

	LaunchedAt     *int64 `json:"launched_at"`
	DeadlineAt     *int64 `json:"deadline_at"`
	StateChangedAt *int64 `json:"state_changed_at"`
	Duration       *int64 `json:"duration"`

	LocationName        string `json:"location_name"`
	LocationCity        string `json:"location_city"`
	LocationState       string `json:"location_state"`
	LocationCountry     string `json:"location_country"`
	LocationCountryName string `json:"location_country_name"`

	CreatorID            string   `json:"creator_id"`
	CreatorName          string   `json:"creator_name"`
	CreatorSlug          string   `json:"creator_slug"`
	CreatorURL           string   `json:"creator_url"`
	CreatorBiography     string   `json:"creator_biography"`
	CreatorWebsites      []string `json:"creator_websites"`
	CreatorBackedCount   *int64   `json:"creator_backed_count"`
	CreatorProjectsCount *int64   `json:"creator_projects_count"`
	CreatorJoinedAt      string   `json:"creator_joined_at"`

	CreatorLocationName        string `json:"creator_location_name"`
	CreatorLocationState       string `json:"creator_location_state"`
	CreatorLocationCountry     string `json:"creator_location_country"`
	CreatorLocationCountryName string `json:"creator_location_country_name"`

	CommentsCount int64 `json:"comments_count"`
	UpdatesCount  int64 `json:"updates_count"`
	WatchesCount  int64 `json:"watches_count"`
	FAQCount      int   `json:"faq_count"`
	RewardCount   int   `json:"reward_count"`

	HasVideo bool   `json:"has_video"`
	VideoURL string `json:"video_url"`

	IsProjectWeLove bool `json:"is_project_we_love"`

	CampaignStoryHTML  string `json:"campaign_story_html"`
	CampaignStoryText  string `json:"campaign_story_text"`
	CampaignWordCount  int    `json:"campaign_word_count"`
	CampaignAIMentions int    `json:"campaign_ai_mentions"`

	Risks   string         `json:"risks"`
	FAQs    []FAQ          `json:"faqs"`
	Rewards []DetailReward `json:"rewards"`
}

// GraphMoney is an amount with its currency
type GraphMoney struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Symbol   string      `json:"symbol"`
}

// GraphLocation is a location node
type GraphLocation struct {
	DisplayableName string `json:"displayableName"`
	Name            string `json:"name"`
	Country         string `json:"country"`
	CountryName     string `json:"countryName"`
	State           string `json:"state"`
}

// GraphCount wraps a connection total
type GraphCount struct {
	TotalCount int64 `json:"totalCount"`
}

// GraphCreator is the creator node of a project
type GraphCreator struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	ImageURL  string `json:"imageUrl"`
	Biography string `json:"biography"`
	Websites  []struct {
		URL string `json:"url"`
	} `json:"websites"`
	BackingsCount    *int64         `json:"backingsCount"`
	LaunchedProjects *GraphCount    `json:"launchedProjects"`
	Location         *GraphLocation `json:"location"`
}

// GraphReward is one reward node
type GraphReward struct {
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Amount              *GraphMoney `json:"amount"`
	BackersCount        int64       `json:"backersCount"`
	EstimatedDeliveryOn string      `json:"estimatedDeliveryOn"`
}

// GraphProject is the project node returned by the GraphQL endpoint
type GraphProject struct {
	Story          string         `json:"story"`
	Risks          string         `json:"risks"`
	Description    string         `json:"description"`
	BackersCount   int64          `json:"backersCount"`
	Goal           *GraphMoney    `json:"goal"`
	Pledged        *GraphMoney    `json:"pledged"`
	State          string         `json:"state"`
	StateChangedAt *int64         `json:"stateChangedAt"`
	LaunchedAt     *int64         `json:"launchedAt"`
	DeadlineAt     *int64         `json:"deadlineAt"`
	Duration       *int64         `json:"duration"`
	Location       *GraphLocation `json:"location"`
	Creator        *GraphCreator  `json:"creator"`
	CommentsCount  int64          `json:"commentsCount"`
	Posts          *GraphCount    `json:"posts"`
	WatchesCount   int64          `json:"watchesCount"`
	Video          *struct {
		VideoSources *struct {
			High *struct {
				Src string `json:"src"`
			} `json:"high"`
		} `json:"videoSources"`
	} `json:"video"`
	IsProjectWeLove bool `json:"isProjectWeLove"`
	FAQs            *struct {
		Nodes []FAQ `json:"nodes"`
	} `json:"faqs"`
	Rewards *struct {
		Nodes []GraphReward `json:"nodes"`
	} `json:"rewards"`
}

// VideoSrc returns the high quality video source, or ""
func (g *GraphProject) VideoSrc() string {
	if g.Video == nil || g.Video.VideoSources == nil || g.Video.VideoSources.High == nil {
		return ""
	}
	return g.Video.VideoSources.High.Src
}
