package corpus

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/models"
	"github.com/vargen/social-analytics/internal/storage"
)

// Columns every post snapshot must carry. Remaining header columns are
// treated as 0/1 account label columns.
var requiredColumns = []string{
	"platform", "author", "url", "authoredAt", "content",
	"positive", "negative", "compound", "engagementRaw", "topics", "raw",
}

// Snapshot is one immutable load of the corpus. Filtering and aggregation
// never mutate it; a reload swaps in a whole new snapshot.
type Snapshot struct {
	Posts     []models.Post
	Weekly    []models.WeeklyKeywords
	Symptoms  []models.SymptomWeek
	Platforms []string // closed enumeration derived from the data, sorted
	Labels    []string // label column schema derived from the header, sorted
	MinDate   time.Time
	MaxDate   time.Time
	LoadedAt  time.Time

	labelSet map[string]struct{}
}

// HasLabel reports whether name is a known label column
func (s *Snapshot) HasLabel(name string) bool {
	_, ok := s.labelSet[name]
	return ok
}

// NewSnapshot builds a snapshot directly from posts, deriving the platform
// enumeration, date span and weekly keyword tables the same way a CSV load
// does. Label names must cover every label column the posts carry.
func NewSnapshot(posts []models.Post, labels []string) *Snapshot {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)

	labelSet := make(map[string]struct{}, len(sorted))
	for _, name := range sorted {
		labelSet[name] = struct{}{}
	}

	snap := &Snapshot{
		Posts:    posts,
		Labels:   sorted,
		labelSet: labelSet,
		LoadedAt: time.Now().UTC(),
	}

	platformSet := make(map[string]struct{})
	for _, post := range posts {
		platformSet[post.Platform] = struct{}{}
		if snap.MinDate.IsZero() || post.AuthoredAt.Before(snap.MinDate) {
			snap.MinDate = post.AuthoredAt
		}
		if post.AuthoredAt.After(snap.MaxDate) {
			snap.MaxDate = post.AuthoredAt
		}
	}
	for platform := range platformSet {
		snap.Platforms = append(snap.Platforms, platform)
	}
	sort.Strings(snap.Platforms)

	snap.Weekly = buildWeeklyKeywords(posts)
	return snap
}

// Store owns the current corpus snapshot
type Store struct {
	storage     storage.Interface
	corpusPath  string
	symptomPath string

	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates a corpus store reading snapshots from the given backend
func NewStore(backend storage.Interface, corpusPath, symptomPath string) *Store {
	return &Store{
		storage:     backend,
		corpusPath:  corpusPath,
		symptomPath: symptomPath,
	}
}

// Load reads the snapshot files and swaps the current snapshot. The first
// call happens at startup and a failure there is fatal to the process.
func (s *Store) Load() error {
	data, err := s.storage.Retrieve(s.corpusPath)
	if err != nil {
		return fmt.Errorf("failed to retrieve corpus snapshot: %w", err)
	}

	snap, err := parseSnapshot(data)
	if err != nil {
		return fmt.Errorf("failed to parse corpus snapshot %s: %w", s.corpusPath, err)
	}

	if s.symptomPath != "" {
		symptomData, err := s.storage.Retrieve(s.symptomPath)
		if err != nil {
			return fmt.Errorf("failed to retrieve symptom snapshot: %w", err)
		}
		snap.Symptoms, err = parseSymptomWeeks(symptomData)
		if err != nil {
			return fmt.Errorf("failed to parse symptom snapshot %s: %w", s.symptomPath, err)
		}
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	logrus.Infof("Loaded corpus snapshot: %d posts, %d platforms, %d label columns, %s to %s",
		len(snap.Posts), len(snap.Platforms), len(snap.Labels),
		snap.MinDate.Format("2006-01-02"), snap.MaxDate.Format("2006-01-02"))
	return nil
}

// Snapshot returns the current immutable snapshot
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func parseSnapshot(data []byte) (*Snapshot, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot has no header row")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("snapshot is missing required column %q", name)
		}
	}

	required := make(map[string]struct{}, len(requiredColumns))
	for _, name := range requiredColumns {
		required[name] = struct{}{}
	}

	var labels []string
	for _, name := range header {
		name = strings.TrimSpace(name)
		if _, ok := required[name]; !ok {
			labels = append(labels, name)
		}
	}
	sort.Strings(labels)

	var posts []models.Post
	for line, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line+2, len(record), len(header))
		}

		post, err := parsePost(record, index, labels)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+2, err)
		}
		posts = append(posts, post)
	}

	return NewSnapshot(posts, labels), nil
}

func parsePost(record []string, index map[string]int, labels []string) (models.Post, error) {
	field := func(name string) string { return strings.TrimSpace(record[index[name]]) }

	authoredAt, err := parseDay(field("authoredAt"))
	if err != nil {
		return models.Post{}, fmt.Errorf("bad authoredAt: %w", err)
	}

	positive, err := parseScore(field("positive"))
	if err != nil {
		return models.Post{}, fmt.Errorf("bad positive score: %w", err)
	}
	negative, err := parseScore(field("negative"))
	if err != nil {
		return models.Post{}, fmt.Errorf("bad negative score: %w", err)
	}
	compound, err := parseScore(field("compound"))
	if err != nil {
		return models.Post{}, fmt.Errorf("bad compound score: %w", err)
	}

	var engagement int64
	if v := field("engagementRaw"); v != "" {
		engagement, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return models.Post{}, fmt.Errorf("bad engagementRaw: %w", err)
		}
	}

	post := models.Post{
		Platform:      strings.ToLower(field("platform")),
		Author:        field("author"),
		URL:           field("url"),
		AuthoredAt:    authoredAt,
		Content:       field("content"),
		Positive:      positive,
		Negative:      negative,
		Compound:      compound,
		EngagementRaw: engagement,
		Topics:        splitList(field("topics")),
		Raw:           parseRawPayload(field("raw")),
		Labels:        make(map[string]bool, len(labels)),
	}

	if post.Platform == "" {
		return models.Post{}, fmt.Errorf("empty platform")
	}

	for _, label := range labels {
		value := strings.TrimSpace(record[index[label]])
		member, err := parseFlag(value)
		if err != nil {
			return models.Post{}, fmt.Errorf("bad %s flag: %w", label, err)
		}
		post.Labels[label] = member
	}

	return post, nil
}

// parseDay normalizes every accepted timestamp shape to midnight UTC,
// keeping all downstream comparisons day-granular.
func parseDay(value string) (time.Time, error) {
	formats := []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return DayUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func parseScore(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

// parseFlag accepts the 0/1 and true/false spellings seen in exports
func parseFlag(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "0", "0.0", "false":
		return false, nil
	case "1", "1.0", "true":
		return true, nil
	}
	return false, fmt.Errorf("unrecognized flag value %q", value)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ";") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseRawPayload keeps only the numeric reaction counters. Payload shapes
// differ per platform, so anything unparseable is dropped rather than fatal.
func parseRawPayload(value string) map[string]float64 {
	if value == "" {
		return nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal([]byte(value), &generic); err != nil {
		logrus.Debugf("Skipping unparseable raw payload: %v", err)
		return nil
	}
	raw := make(map[string]float64, len(generic))
	for key, v := range generic {
		if n, ok := v.(float64); ok {
			raw[key] = n
		}
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func buildWeeklyKeywords(posts []models.Post) []models.WeeklyKeywords {
	byWeek := make(map[time.Time]map[string]int)
	for _, post := range posts {
		if len(post.Topics) == 0 {
			continue
		}
		week := WeekStartUTC(post.AuthoredAt)
		terms := byWeek[week]
		if terms == nil {
			terms = make(map[string]int)
			byWeek[week] = terms
		}
		for _, topic := range post.Topics {
			terms[topic]++
		}
	}

	weekly := make([]models.WeeklyKeywords, 0, len(byWeek))
	for week, terms := range byWeek {
		weekly = append(weekly, models.WeeklyKeywords{WeekAuthored: week, Terms: terms})
	}
	sort.Slice(weekly, func(i, j int) bool {
		return weekly[i].WeekAuthored.Before(weekly[j].WeekAuthored)
	})
	return weekly
}

func parseSymptomWeeks(data []byte) ([]models.SymptomWeek, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("symptom snapshot has no header row")
	}

	header := records[0]
	weekIdx, symptomIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "weekAuthored":
			weekIdx = i
		case "symptoms":
			symptomIdx = i
		}
	}
	if weekIdx < 0 || symptomIdx < 0 {
		return nil, fmt.Errorf("symptom snapshot needs weekAuthored and symptoms columns")
	}

	var weeks []models.SymptomWeek
	for line, record := range records[1:] {
		week, err := parseDay(strings.TrimSpace(record[weekIdx]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad weekAuthored: %w", line+2, err)
		}
		weeks = append(weeks, models.SymptomWeek{
			WeekAuthored: WeekStartUTC(week),
			Symptoms:     splitList(strings.TrimSpace(record[symptomIdx])),
		})
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].WeekAuthored.Before(weeks[j].WeekAuthored)
	})
	return weeks, nil
}

// DayUTC truncates a timestamp to midnight UTC
func DayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStartUTC returns the Monday of the ISO week containing t
func WeekStartUTC(t time.Time) time.Time {
	day := DayUTC(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
