package filter

import (
	"time"

	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/models"
)

// Result is a filtered view over one corpus snapshot. Posts reference the
// snapshot rows, they are never copied or mutated.
type Result struct {
	Posts    []*models.Post
	Weekly   []*models.WeeklyKeywords
	Symptoms []*models.SymptomWeek

	// The concrete date bounds actually applied, so downstream consumers
	// can set consistent axis ranges even under "all dates".
	Start time.Time
	End   time.Time
}

// Engine applies facet selections to corpus snapshots. It holds no state;
// concurrent Apply calls are safe.
type Engine struct{}

// NewEngine creates a filter engine
func NewEngine() *Engine {
	return &Engine{}
}

// Apply filters a snapshot down to the rows matching the facet selection.
// Predicates run in fixed order: platforms, categories, identity, account
// type, location, then the date bound. Category selection uses AND
// semantics; an empty selection restricts nothing.
func (e *Engine) Apply(snap *corpus.Snapshot, facets models.FacetSelection) (*Result, error) {
	if err := validateFacets(snap, facets); err != nil {
		return nil, err
	}

	rows := make([]*models.Post, 0, len(snap.Posts))
	for i := range snap.Posts {
		rows = append(rows, &snap.Posts[i])
	}

	rows = filterPlatforms(rows, facets.Platforms)

	for _, category := range facets.Categories {
		rows = filterLabel(rows, category, true)
	}

	if identity := facets.Identity; identity != "" && identity != "all" {
		rows = filterLabel(rows, identity, true)
	}

	switch facets.AccountType {
	case "institutional":
		rows = filterLabel(rows, "institutional", true)
	case "non-institutional":
		rows = filterLabel(rows, "institutional", false)
	}

	switch facets.Location {
	case "georgia":
		rows = filterLabel(rows, "georgia", true)
	case "non-georgia":
		rows = filterLabel(rows, "georgia", false)
	}

	start, end, err := resolveDates(snap, rows, facets)
	if err != nil {
		return nil, err
	}

	kept := rows[:0]
	for _, post := range rows {
		if post.AuthoredAt.Before(start) || post.AuthoredAt.After(end) {
			continue
		}
		kept = append(kept, post)
	}

	result := &Result{
		Posts: kept,
		Start: start,
		End:   end,
	}

	for i := range snap.Weekly {
		week := snap.Weekly[i].WeekAuthored
		if week.Before(start) || week.After(end) {
			continue
		}
		result.Weekly = append(result.Weekly, &snap.Weekly[i])
	}

	for i := range snap.Symptoms {
		week := snap.Symptoms[i].WeekAuthored
		if week.Before(start) || week.After(end) {
			continue
		}
		result.Symptoms = append(result.Symptoms, &snap.Symptoms[i])
	}

	return result, nil
}

func validateFacets(snap *corpus.Snapshot, facets models.FacetSelection) error {
	for _, category := range facets.Categories {
		if !snap.HasLabel(category) {
			return &InvalidFacetError{Facet: "categories", Value: category}
		}
	}

	if identity := facets.Identity; identity != "" && identity != "all" {
		if !snap.HasLabel(identity) {
			return &InvalidFacetError{Facet: "identity", Value: identity}
		}
	}

	switch facets.AccountType {
	case "", "all":
	case "institutional", "non-institutional":
		if !snap.HasLabel("institutional") {
			return &InvalidFacetError{Facet: "accountType", Value: facets.AccountType}
		}
	default:
		return &InvalidFacetError{Facet: "accountType", Value: facets.AccountType}
	}

	switch facets.Location {
	case "", "all":
	case "georgia", "non-georgia":
		if !snap.HasLabel("georgia") {
			return &InvalidFacetError{Facet: "location", Value: facets.Location}
		}
	default:
		return &InvalidFacetError{Facet: "location", Value: facets.Location}
	}

	switch facets.TimeMode {
	case "", models.TimeModeRelative, models.TimeModeRange:
	default:
		return &InvalidFacetError{Facet: "timeMode", Value: facets.TimeMode}
	}

	return nil
}

func filterPlatforms(rows []*models.Post, platforms []string) []*models.Post {
	if len(platforms) == 0 {
		return rows
	}
	members := make(map[string]struct{}, len(platforms))
	for _, platform := range platforms {
		members[platform] = struct{}{}
	}
	kept := rows[:0]
	for _, post := range rows {
		if _, ok := members[post.Platform]; ok {
			kept = append(kept, post)
		}
	}
	return kept
}

func filterLabel(rows []*models.Post, label string, want bool) []*models.Post {
	kept := rows[:0]
	for _, post := range rows {
		if post.Labels[label] == want {
			kept = append(kept, post)
		}
	}
	return kept
}

// resolveDates turns the time facets into the concrete inclusive [start, end]
// day bounds applied to the view. Relative windows anchor to the latest post
// date in the already label-filtered view, not to wall-clock now, so a
// historical snapshot still produces populated windows. "All dates" resolves
// to the corpus span rather than an open bound.
func resolveDates(snap *corpus.Snapshot, rows []*models.Post, facets models.FacetSelection) (time.Time, time.Time, error) {
	mode := facets.TimeMode
	if mode == "" {
		mode = models.TimeModeRelative
	}

	if mode == models.TimeModeRange {
		start, err := parseDay(facets.RangeStart)
		if err != nil {
			return time.Time{}, time.Time{}, &InvalidDateRangeError{Field: "start", Value: facets.RangeStart, Err: err}
		}
		end, err := parseDay(facets.RangeEnd)
		if err != nil {
			return time.Time{}, time.Time{}, &InvalidDateRangeError{Field: "end", Value: facets.RangeEnd, Err: err}
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, &InvalidDateRangeError{Field: "range", Value: facets.RangeStart + ".." + facets.RangeEnd}
		}
		return start, end, nil
	}

	window := facets.RelativeWindow
	if window == "" {
		window = models.WindowAllDates
	}
	if window == models.WindowAllDates {
		return snap.MinDate, snap.MaxDate, nil
	}

	// Anchor on the filtered view when it has rows, the corpus otherwise
	anchor := snap.MaxDate
	latest := time.Time{}
	for _, post := range rows {
		if post.AuthoredAt.After(latest) {
			latest = post.AuthoredAt
		}
	}
	if !latest.IsZero() {
		anchor = latest
	}

	var start time.Time
	switch window {
	case models.WindowLast7Days:
		start = anchor.AddDate(0, 0, -7)
	case models.WindowLast15Days:
		start = anchor.AddDate(0, 0, -15)
	case models.WindowLast30Days:
		start = anchor.AddDate(0, 0, -30)
	case models.WindowLast60Days:
		start = anchor.AddDate(0, 0, -60)
	case models.WindowLast90Days:
		start = anchor.AddDate(0, 0, -90)
	case models.WindowLast6Months:
		start = anchor.AddDate(0, -6, 0)
	case models.WindowLastYear:
		start = anchor.AddDate(-1, 0, 0)
	default:
		return time.Time{}, time.Time{}, &InvalidFacetError{Facet: "relativeWindow", Value: window}
	}

	if start.Before(snap.MinDate) {
		start = snap.MinDate
	}
	return start, anchor, nil
}

func parseDay(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return corpus.DayUTC(t), nil
}
