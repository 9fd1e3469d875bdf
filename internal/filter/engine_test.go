package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/models"
)

var testLabels = []string{
	"government", "media", "faith", "health", "covid", "misinfo",
	"partners", "trusted", "blackafam", "latinx", "institutional", "georgia",
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func post(platform, date string, labels ...string) models.Post {
	p := models.Post{
		Platform:   platform,
		AuthoredAt: day(date),
		Labels:     make(map[string]bool, len(labels)),
	}
	for _, label := range labels {
		p.Labels[label] = true
	}
	return p
}

func testSnapshot() *corpus.Snapshot {
	return corpus.NewSnapshot([]models.Post{
		post("facebook", "2021-03-01", "government", "institutional", "georgia"),
		post("facebook", "2021-03-02", "government", "media", "institutional"),
		post("twitter", "2021-03-03", "media", "georgia"),
		post("twitter", "2021-03-10", "blackafam"),
		post("instagram", "2021-03-15", "health", "georgia"),
	}, testLabels)
}

func TestEngine_Apply_Platforms(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	tests := []struct {
		name      string
		platforms []string
		expected  int
	}{
		{"no platform restriction keeps everything", nil, 5},
		{"single platform", []string{"facebook"}, 2},
		{"two platforms", []string{"facebook", "twitter"}, 4},
		{"platform absent from corpus yields empty view", []string{"youtube"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Apply(snap, models.FacetSelection{Platforms: tt.platforms})
			require.NoError(t, err)
			assert.Len(t, result.Posts, tt.expected)
		})
	}
}

func TestEngine_Apply_CategoriesUseANDSemantics(t *testing.T) {
	engine := NewEngine()
	snap := corpus.NewSnapshot([]models.Post{
		post("facebook", "2021-03-01", "government"),
		post("facebook", "2021-03-02", "government", "media"),
	}, testLabels)

	result, err := engine.Apply(snap, models.FacetSelection{Categories: []string{"government", "media"}})
	require.NoError(t, err)
	require.Len(t, result.Posts, 1)
	assert.True(t, result.Posts[0].Labels["media"])
}

func TestEngine_Apply_EmptyCategorySelectionRestrictsNothing(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	result, err := engine.Apply(snap, models.FacetSelection{Categories: []string{}})
	require.NoError(t, err)
	assert.Len(t, result.Posts, len(snap.Posts))
}

func TestEngine_Apply_IdentityTypeLocation(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	tests := []struct {
		name     string
		facets   models.FacetSelection
		expected int
	}{
		{"identity all", models.FacetSelection{Identity: "all"}, 5},
		{"identity blackafam", models.FacetSelection{Identity: "blackafam"}, 1},
		{"institutional", models.FacetSelection{AccountType: "institutional"}, 2},
		{"non-institutional", models.FacetSelection{AccountType: "non-institutional"}, 3},
		{"georgia", models.FacetSelection{Location: "georgia"}, 3},
		{"non-georgia", models.FacetSelection{Location: "non-georgia"}, 2},
		{"combined", models.FacetSelection{AccountType: "institutional", Location: "georgia"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Apply(snap, tt.facets)
			require.NoError(t, err)
			assert.Len(t, result.Posts, tt.expected)
		})
	}
}

func TestEngine_Apply_UnknownFacetValues(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	tests := []struct {
		name   string
		facets models.FacetSelection
	}{
		{"unknown category", models.FacetSelection{Categories: []string{"astrology"}}},
		{"unknown identity", models.FacetSelection{Identity: "martian"}},
		{"unknown account type", models.FacetSelection{AccountType: "cooperative"}},
		{"unknown location", models.FacetSelection{Location: "atlantis"}},
		{"unknown time mode", models.FacetSelection{TimeMode: "sometimes"}},
		{"unknown relative window", models.FacetSelection{TimeMode: "relative", RelativeWindow: "2 fortnights"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Apply(snap, tt.facets)
			require.Error(t, err)
			var facetErr *InvalidFacetError
			assert.ErrorAs(t, err, &facetErr)
		})
	}
}

func TestEngine_Apply_InvalidDateRange(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	tests := []struct {
		name       string
		start, end string
	}{
		{"malformed start", "03/01/2021", "2021-03-05"},
		{"malformed end", "2021-03-01", "soon"},
		{"inverted range", "2021-03-10", "2021-03-01"},
		{"missing bounds", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Apply(snap, models.FacetSelection{
				TimeMode:   models.TimeModeRange,
				RangeStart: tt.start,
				RangeEnd:   tt.end,
			})
			require.Error(t, err)
			var dateErr *InvalidDateRangeError
			assert.ErrorAs(t, err, &dateErr)
		})
	}
}

func TestEngine_Apply_CustomRangeIsInclusive(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	result, err := engine.Apply(snap, models.FacetSelection{
		TimeMode:   models.TimeModeRange,
		RangeStart: "2021-03-02",
		RangeEnd:   "2021-03-10",
	})
	require.NoError(t, err)
	assert.Len(t, result.Posts, 3) // 03-02, 03-03 and 03-10 inclusive
	assert.Equal(t, day("2021-03-02"), result.Start)
	assert.Equal(t, day("2021-03-10"), result.End)
}

func TestEngine_Apply_AllDatesResolvesToCorpusSpan(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	result, err := engine.Apply(snap, models.FacetSelection{})
	require.NoError(t, err)
	assert.Len(t, result.Posts, 5)
	assert.Equal(t, day("2021-03-01"), result.Start)
	assert.Equal(t, day("2021-03-15"), result.End)
}

func TestEngine_Apply_RelativeWindowAnchorsToFilteredMax(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	// Facebook posts end on 03-02, so the 7-day window anchors there, not at
	// the corpus-wide max of 03-15
	result, err := engine.Apply(snap, models.FacetSelection{
		Platforms:      []string{"facebook"},
		TimeMode:       models.TimeModeRelative,
		RelativeWindow: models.WindowLast7Days,
	})
	require.NoError(t, err)
	assert.Len(t, result.Posts, 2)
	assert.Equal(t, day("2021-03-02"), result.End)
}

func TestEngine_Apply_RelativeWindowClampsToCorpusStart(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	result, err := engine.Apply(snap, models.FacetSelection{
		TimeMode:       models.TimeModeRelative,
		RelativeWindow: models.WindowLastYear,
	})
	require.NoError(t, err)
	assert.Equal(t, day("2021-03-01"), result.Start)
	assert.Equal(t, day("2021-03-15"), result.End)
}

func TestEngine_Apply_MonotonicNarrowing(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	selections := []models.FacetSelection{
		{},
		{Platforms: []string{"facebook", "twitter"}},
		{Platforms: []string{"facebook", "twitter"}, Categories: []string{"media"}},
		{Platforms: []string{"facebook", "twitter"}, Categories: []string{"media"}, Location: "georgia"},
		{Platforms: []string{"facebook", "twitter"}, Categories: []string{"media"}, Location: "georgia",
			TimeMode: models.TimeModeRange, RangeStart: "2021-03-03", RangeEnd: "2021-03-03"},
	}

	previous := len(snap.Posts) + 1
	for _, facets := range selections {
		result, err := engine.Apply(snap, facets)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(result.Posts), previous)
		previous = len(result.Posts)
	}
}

func TestEngine_Apply_Idempotent(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()

	facets := models.FacetSelection{
		Platforms:  []string{"facebook", "twitter"},
		Categories: []string{"media"},
		TimeMode:   models.TimeModeRange,
		RangeStart: "2021-03-01",
		RangeEnd:   "2021-03-31",
	}

	first, err := engine.Apply(snap, facets)
	require.NoError(t, err)

	// Re-filter the surviving rows under the same selection
	rows := make([]models.Post, 0, len(first.Posts))
	for _, p := range first.Posts {
		rows = append(rows, *p)
	}
	second, err := engine.Apply(corpus.NewSnapshot(rows, testLabels), facets)
	require.NoError(t, err)

	require.Len(t, second.Posts, len(first.Posts))
	for i := range first.Posts {
		assert.Equal(t, *first.Posts[i], *second.Posts[i])
	}
}

func TestEngine_Apply_FiltersWeeklyTables(t *testing.T) {
	engine := NewEngine()
	posts := []models.Post{
		post("facebook", "2021-03-01"),
		post("facebook", "2021-03-10"),
	}
	posts[0].Topics = []string{"vaccines"}
	posts[1].Topics = []string{"masks"}
	snap := corpus.NewSnapshot(posts, testLabels)

	result, err := engine.Apply(snap, models.FacetSelection{
		TimeMode:   models.TimeModeRange,
		RangeStart: "2021-03-08",
		RangeEnd:   "2021-03-14",
	})
	require.NoError(t, err)
	require.Len(t, result.Weekly, 1)
	assert.Equal(t, 1, result.Weekly[0].Terms["masks"])
}

func TestEngine_Apply_DoesNotMutateSnapshot(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot()
	before := len(snap.Posts)

	_, err := engine.Apply(snap, models.FacetSelection{Platforms: []string{"facebook"}})
	require.NoError(t, err)
	_, err = engine.Apply(snap, models.FacetSelection{Location: "georgia"})
	require.NoError(t, err)

	assert.Len(t, snap.Posts, before)
}
