package models

import "time"

// Post represents one social media post from the corpus snapshot
type Post struct {
	Platform      string             `json:"platform"` // "facebook", "instagram", "twitter", etc.
	Author        string             `json:"author"`
	URL           string             `json:"url"`
	AuthoredAt    time.Time          `json:"authored_at"` // normalized to day precision, UTC
	Content       string             `json:"content"`
	Positive      float64            `json:"positive"`
	Negative      float64            `json:"negative"`
	Compound      float64            `json:"compound"`       // normalized [-1, 1]
	EngagementRaw int64              `json:"engagement_raw"` // precomputed sum of reaction counts
	Labels        map[string]bool    `json:"labels"`         // account labels: "government", "media", ...
	Topics        []string           `json:"topics"`
	Raw           map[string]float64 `json:"raw,omitempty"` // platform-specific reaction counters
}

// WeeklyKeywords holds the keyword term frequencies for one ISO week
type WeeklyKeywords struct {
	WeekAuthored time.Time      `json:"week_authored"` // Monday of the ISO week, UTC
	Terms        map[string]int `json:"terms"`
}

// SymptomWeek holds the symptom tags observed during one week
type SymptomWeek struct {
	WeekAuthored time.Time `json:"week_authored"`
	Symptoms     []string  `json:"symptoms"`
}

// Time modes for FacetSelection
const (
	TimeModeRelative = "relative"
	TimeModeRange    = "range"
)

// Relative window values
const (
	WindowLast7Days   = "7d"
	WindowLast15Days  = "15d"
	WindowLast30Days  = "30d"
	WindowLast60Days  = "60d"
	WindowLast90Days  = "90d"
	WindowLast6Months = "6m"
	WindowLastYear    = "1y"
	WindowAllDates    = "all"
)

// FacetSelection describes one filter request against the corpus
type FacetSelection struct {
	Platforms      []string `json:"platforms"`       // empty means all platforms present
	Categories     []string `json:"categories"`      // AND semantics across label columns
	Identity       string   `json:"identity"`        // "all", "blackafam", "latinx"
	AccountType    string   `json:"account_type"`    // "all", "institutional", "non-institutional"
	Location       string   `json:"location"`        // "all", "georgia", "non-georgia"
	TimeMode       string   `json:"time_mode"`       // "relative" or "range"
	RelativeWindow string   `json:"relative_window"` // one of the Window* values
	RangeStart     string   `json:"range_start"`     // "2006-01-02", range mode only
	RangeEnd       string   `json:"range_end"`
}

// Digest represents a periodic summary report over the corpus
type Digest struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	Period         string         `json:"period"` // "daily" or "weekly"
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	TotalPosts     int            `json:"total_posts"`
	TotalReactions int64          `json:"total_reactions"`
	Sentiment      map[string]int `json:"sentiment"`
	PlatformCounts map[string]int `json:"platform_counts"`
	TopTopics      []string       `json:"top_topics"`
}
