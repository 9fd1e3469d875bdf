package aggregate

import (
	"sort"
	"time"

	"github.com/vargen/social-analytics/internal/filter"
	"github.com/vargen/social-analytics/internal/models"
)

// Sentiment category names
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Config tunes the aggregation engine
type Config struct {
	PositiveThreshold float64 // compound at or above classifies as positive
	NegativeThreshold float64 // compound at or below classifies as negative
	RollingWindowDays int
	TopicLimit        int
	ReactionFields    map[string][]string // platform -> raw payload reaction counters
}

// DefaultConfig returns the thresholds and reaction maps observed in the data
func DefaultConfig() Config {
	return Config{
		PositiveThreshold: 0.1,
		NegativeThreshold: -0.1,
		RollingWindowDays: 7,
		TopicLimit:        20,
		ReactionFields:    DefaultReactionFields(),
	}
}

// Engine computes grouped and windowed statistics from filtered views. It is
// a pure function of its inputs; concurrent calls are safe.
type Engine struct {
	cfg Config
}

// NewEngine creates an aggregation engine
func NewEngine(cfg Config) *Engine {
	if cfg.RollingWindowDays < 1 {
		cfg.RollingWindowDays = 1
	}
	if cfg.TopicLimit <= 0 {
		cfg.TopicLimit = 20
	}
	return &Engine{cfg: cfg}
}

// SentimentPoint is one day of a sentiment time series. Rolling values are
// only meaningful when RollingValid is set; the engine never coerces the
// undefined leading window to zero, that choice belongs to presentation.
type SentimentPoint struct {
	Date            time.Time `json:"date"`
	Positive        float64   `json:"positive"`
	Negative        float64   `json:"negative"`
	Compound        float64   `json:"compound"`
	PositiveRolling float64   `json:"positive_rolling"`
	NegativeRolling float64   `json:"negative_rolling"`
	CompoundRolling float64   `json:"compound_rolling"`
	RollingValid    bool      `json:"rolling_valid"`
}

// VolumePoint is one day of the post volume series
type VolumePoint struct {
	Date         time.Time `json:"date"`
	Count        int       `json:"count"`
	Rolling      float64   `json:"rolling"`
	RollingValid bool      `json:"rolling_valid"`
}

// Breakdown holds the categorical sentiment counts
type Breakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// FrequencyCount is one named counter of a frequency table
type FrequencyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EngagementTotals sums engagement over a filtered view
type EngagementTotals struct {
	TotalPosts     int                         `json:"total_posts"`
	TotalReactions int64                       `json:"total_reactions"`
	Reactions      map[string]map[string]int64 `json:"reactions"` // platform -> counter -> sum
	SkippedRows    int                         `json:"skipped_rows"`
}

// Classify maps a compound score to its sentiment category
func (e *Engine) Classify(compound float64) string {
	switch {
	case compound >= e.cfg.PositiveThreshold:
		return SentimentPositive
	case compound <= e.cfg.NegativeThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// SentimentMerged computes the all-platform sentiment series: per-(day,
// platform) means collapsed to one value per day by averaging the platform
// means, with a trailing rolling mean over the calendar window.
func (e *Engine) SentimentMerged(view *filter.Result) []SentimentPoint {
	byDayPlatform := groupSentiment(view.Posts)

	type dayAccum struct {
		positive, negative, compound float64
		platforms                    int
	}
	byDay := make(map[time.Time]*dayAccum)
	for key, mean := range byDayPlatform {
		accum := byDay[key.day]
		if accum == nil {
			accum = &dayAccum{}
			byDay[key.day] = accum
		}
		accum.positive += mean.positive
		accum.negative += mean.negative
		accum.compound += mean.compound
		accum.platforms++
	}

	points := make([]SentimentPoint, 0, len(byDay))
	for day, accum := range byDay {
		n := float64(accum.platforms)
		points = append(points, SentimentPoint{
			Date:     day,
			Positive: accum.positive / n,
			Negative: accum.negative / n,
			Compound: accum.compound / n,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	e.applyRolling(points)
	return points
}

// SentimentByPlatform computes one sentiment series per platform, each with
// its own rolling mean
func (e *Engine) SentimentByPlatform(view *filter.Result) map[string][]SentimentPoint {
	byDayPlatform := groupSentiment(view.Posts)

	series := make(map[string][]SentimentPoint)
	for key, mean := range byDayPlatform {
		series[key.platform] = append(series[key.platform], SentimentPoint{
			Date:     key.day,
			Positive: mean.positive,
			Negative: mean.negative,
			Compound: mean.compound,
		})
	}

	for platform, points := range series {
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		e.applyRolling(points)
		series[platform] = points
	}
	return series
}

// PostVolume counts raw rows per day across the resolved date range. Days
// without posts appear as explicit zero counts so the rolling mean stays
// correct; the source dashboards dropped them, which skewed the averages.
func (e *Engine) PostVolume(view *filter.Result) []VolumePoint {
	if view.Start.IsZero() || view.End.Before(view.Start) {
		return nil
	}

	counts := make(map[time.Time]int)
	for _, post := range view.Posts {
		counts[post.AuthoredAt]++
	}

	var points []VolumePoint
	for day := view.Start; !day.After(view.End); day = day.AddDate(0, 0, 1) {
		points = append(points, VolumePoint{Date: day, Count: counts[day]})
	}

	window := e.cfg.RollingWindowDays
	sum := 0
	for i := range points {
		sum += points[i].Count
		if i >= window {
			sum -= points[i-window].Count
		}
		if i >= window-1 {
			points[i].Rolling = float64(sum) / float64(window)
			points[i].RollingValid = true
		}
	}
	return points
}

// SentimentBreakdown counts filtered rows per sentiment category
func (e *Engine) SentimentBreakdown(view *filter.Result) Breakdown {
	var breakdown Breakdown
	for _, post := range view.Posts {
		switch e.Classify(post.Compound) {
		case SentimentPositive:
			breakdown.Positive++
		case SentimentNegative:
			breakdown.Negative++
		default:
			breakdown.Neutral++
		}
	}
	return breakdown
}

// TopicFrequency counts topic occurrences across the view, descending by
// count with alphabetical tie-break, truncated to limit (0 means the
// configured default)
func (e *Engine) TopicFrequency(view *filter.Result, limit int) []FrequencyCount {
	counts := make(map[string]int)
	for _, post := range view.Posts {
		for _, topic := range post.Topics {
			counts[topic]++
		}
	}
	return e.rank(counts, limit)
}

// LabelFrequency sums label column membership for the named labels
func (e *Engine) LabelFrequency(view *filter.Result, labels []string) []FrequencyCount {
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	for _, post := range view.Posts {
		for _, label := range labels {
			if post.Labels[label] {
				counts[label]++
			}
		}
	}
	return e.rank(counts, len(labels))
}

// WeeklyKeywordFrequency merges the per-week keyword tables of the view
func (e *Engine) WeeklyKeywordFrequency(view *filter.Result, limit int) []FrequencyCount {
	counts := make(map[string]int)
	for _, week := range view.Weekly {
		for term, n := range week.Terms {
			counts[term] += n
		}
	}
	return e.rank(counts, limit)
}

// SymptomFrequency counts symptom tag occurrences across the view's weeks
func (e *Engine) SymptomFrequency(view *filter.Result, limit int) []FrequencyCount {
	counts := make(map[string]int)
	for _, week := range view.Symptoms {
		for _, symptom := range week.Symptoms {
			counts[symptom]++
		}
	}
	return e.rank(counts, limit)
}

// EngagementTotals sums the precomputed engagement scalar and the
// platform-specific reaction counters. Rows whose raw payload is missing an
// expected counter contribute zero for it instead of failing the rollup.
func (e *Engine) EngagementTotals(view *filter.Result) EngagementTotals {
	totals := EngagementTotals{
		TotalPosts: len(view.Posts),
		Reactions:  make(map[string]map[string]int64),
	}

	for _, post := range view.Posts {
		totals.TotalReactions += post.EngagementRaw

		fields, ok := e.cfg.ReactionFields[post.Platform]
		if !ok {
			continue
		}
		if post.Raw == nil {
			totals.SkippedRows++
			continue
		}

		counters := totals.Reactions[post.Platform]
		if counters == nil {
			counters = make(map[string]int64, len(fields))
			totals.Reactions[post.Platform] = counters
		}
		for _, field := range fields {
			if value, ok := post.Raw[field]; ok {
				counters[field] += int64(value)
			}
		}
	}

	return totals
}

type dayPlatformKey struct {
	day      time.Time
	platform string
}

type sentimentMean struct {
	positive, negative, compound float64
}

func groupSentiment(posts []*models.Post) map[dayPlatformKey]sentimentMean {
	type accum struct {
		positive, negative, compound float64
		n                            int
	}
	groups := make(map[dayPlatformKey]*accum)
	for _, post := range posts {
		key := dayPlatformKey{day: post.AuthoredAt, platform: post.Platform}
		a := groups[key]
		if a == nil {
			a = &accum{}
			groups[key] = a
		}
		a.positive += post.Positive
		a.negative += post.Negative
		a.compound += post.Compound
		a.n++
	}

	means := make(map[dayPlatformKey]sentimentMean, len(groups))
	for key, a := range groups {
		n := float64(a.n)
		means[key] = sentimentMean{
			positive: a.positive / n,
			negative: a.negative / n,
			compound: a.compound / n,
		}
	}
	return means
}

// applyRolling fills the rolling fields of a date-ascending series. The
// window covers the calendar days [d-w+1, d]; days absent from the series
// contribute nothing to either side of the mean. A point is valid once the
// full window fits after the first observed day.
func (e *Engine) applyRolling(points []SentimentPoint) {
	if len(points) == 0 {
		return
	}
	window := e.cfg.RollingWindowDays
	first := points[0].Date
	lo := 0
	for i := range points {
		windowStart := points[i].Date.AddDate(0, 0, -(window - 1))
		for points[lo].Date.Before(windowStart) {
			lo++
		}
		var positive, negative, compound float64
		n := float64(i - lo + 1)
		for j := lo; j <= i; j++ {
			positive += points[j].Positive
			negative += points[j].Negative
			compound += points[j].Compound
		}
		points[i].PositiveRolling = positive / n
		points[i].NegativeRolling = negative / n
		points[i].CompoundRolling = compound / n
		points[i].RollingValid = !points[i].Date.Before(first.AddDate(0, 0, window-1))
	}
}

func (e *Engine) rank(counts map[string]int, limit int) []FrequencyCount {
	if limit <= 0 {
		limit = e.cfg.TopicLimit
	}
	ranked := make([]FrequencyCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, FrequencyCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
