package corpus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStorage is a minimal in-memory storage backend for tests
type memoryStorage struct {
	files map[string][]byte
}

func (m *memoryStorage) Store(name string, data []byte) error {
	m.files[name] = data
	return nil
}

func (m *memoryStorage) Retrieve(name string) ([]byte, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("no such file %s", name)
	}
	return data, nil
}

func (m *memoryStorage) List(prefix string) ([]string, error) {
	return nil, nil
}

const sampleCSV = `platform,author,url,authoredAt,content,positive,negative,compound,engagementRaw,topics,raw,government,media,georgia
facebook,gadph,https://facebook.com/p/1,2021-03-01T14:22:00Z,Vaccine clinics open,0.45,0.05,0.62,118,vaccines;clinics,"{""likeCount"":80,""shareCount"":38}",1,0,1
twitter,health_watch,https://twitter.com/s/1,2021-03-02,Strong vaccine protection,0.50,0.02,0.71,230,vaccines,"{""retweets"":120,""likes"":110}",0,1,0
instagram,wellness_ga,https://instagram.com/p/2,2021-03-08,Mask up this weekend,0.35,0.10,0.15,60,masks,,0,0,1
`

func loadSample(t *testing.T) *Snapshot {
	t.Helper()
	store := NewStore(&memoryStorage{files: map[string][]byte{"posts.csv": []byte(sampleCSV)}}, "posts.csv", "")
	require.NoError(t, store.Load())
	return store.Snapshot()
}

func TestStore_Load(t *testing.T) {
	snap := loadSample(t)

	assert.Len(t, snap.Posts, 3)
	assert.Equal(t, []string{"facebook", "instagram", "twitter"}, snap.Platforms)
	assert.Equal(t, []string{"georgia", "government", "media"}, snap.Labels)
	assert.True(t, snap.HasLabel("government"))
	assert.False(t, snap.HasLabel("faith"))
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), snap.MinDate)
	assert.Equal(t, time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC), snap.MaxDate)
}

func TestStore_Load_NormalizesTimestampsToDays(t *testing.T) {
	snap := loadSample(t)

	// The first row carries a full RFC3339 timestamp
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), snap.Posts[0].AuthoredAt)
}

func TestStore_Load_ParsesLabelsAndPayloads(t *testing.T) {
	snap := loadSample(t)

	first := snap.Posts[0]
	assert.True(t, first.Labels["government"])
	assert.False(t, first.Labels["media"])
	assert.Equal(t, []string{"vaccines", "clinics"}, first.Topics)
	assert.Equal(t, float64(80), first.Raw["likeCount"])
	assert.Equal(t, int64(118), first.EngagementRaw)

	// Empty raw payload stays nil rather than an empty map
	assert.Nil(t, snap.Posts[2].Raw)
}

func TestStore_Load_BuildsWeeklyKeywords(t *testing.T) {
	snap := loadSample(t)

	require.Len(t, snap.Weekly, 2)
	// 2021-03-01 is a Monday; the first two posts share that ISO week
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), snap.Weekly[0].WeekAuthored)
	assert.Equal(t, 2, snap.Weekly[0].Terms["vaccines"])
	assert.Equal(t, 1, snap.Weekly[0].Terms["clinics"])
	assert.Equal(t, time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC), snap.Weekly[1].WeekAuthored)
	assert.Equal(t, 1, snap.Weekly[1].Terms["masks"])
}

func TestStore_Load_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{
			name: "missing required column",
			csv:  "platform,author,url,authoredAt,content\nfacebook,a,u,2021-03-01,hello\n",
		},
		{
			name: "malformed date",
			csv:  "platform,author,url,authoredAt,content,positive,negative,compound,engagementRaw,topics,raw\nfacebook,a,u,yesterday,hello,0,0,0,0,,\n",
		},
		{
			name: "malformed label flag",
			csv:  "platform,author,url,authoredAt,content,positive,negative,compound,engagementRaw,topics,raw,media\nfacebook,a,u,2021-03-01,hello,0,0,0,0,,,maybe\n",
		},
		{
			name: "empty file",
			csv:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(&memoryStorage{files: map[string][]byte{"posts.csv": []byte(tt.csv)}}, "posts.csv", "")
			assert.Error(t, store.Load())
		})
	}
}

func TestStore_Load_MissingFileIsFatal(t *testing.T) {
	store := NewStore(&memoryStorage{files: map[string][]byte{}}, "posts.csv", "")
	assert.Error(t, store.Load())
}

func TestStore_Load_SymptomWeeks(t *testing.T) {
	symptoms := "weekAuthored,symptoms\n2021-03-01,cough;fever\n2021-03-08,fatigue\n"
	store := NewStore(&memoryStorage{files: map[string][]byte{
		"posts.csv":    []byte(sampleCSV),
		"symptoms.csv": []byte(symptoms),
	}}, "posts.csv", "symptoms.csv")
	require.NoError(t, store.Load())

	snap := store.Snapshot()
	require.Len(t, snap.Symptoms, 2)
	assert.Equal(t, []string{"cough", "fever"}, snap.Symptoms[0].Symptoms)
	assert.Equal(t, time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC), snap.Symptoms[1].WeekAuthored)
}

func TestWeekStartUTC(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself",
			day:  time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday maps to preceding monday",
			day:  time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC),
			want: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday maps back two days",
			day:  time.Date(2021, 3, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStartUTC(tt.day))
		})
	}
}
