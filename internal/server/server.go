package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/aggregate"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/filter"
	"github.com/vargen/social-analytics/internal/models"
	"github.com/vargen/social-analytics/internal/storage"
)

var topicNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DigestRunner triggers an on-demand digest run
type DigestRunner interface {
	Run() error
}

// Server exposes the filter and aggregation engines over HTTP
type Server struct {
	cfg       *config.Config
	store     *corpus.Store
	filter    *filter.Engine
	aggregate *aggregate.Engine
	backend   storage.Interface
	digests   DigestRunner

	mu      sync.Mutex
	metrics metrics
}

type metrics struct {
	Requests     int64     `json:"requests"`
	FacetErrors  int64     `json:"facet_errors"`
	ServerErrors int64     `json:"server_errors"`
	LastReload   time.Time `json:"last_reload"`
}

// New creates the HTTP server
func New(cfg *config.Config, store *corpus.Store, filterEngine *filter.Engine, aggregateEngine *aggregate.Engine, backend storage.Interface, digests DigestRunner) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		filter:    filterEngine,
		aggregate: aggregateEngine,
		backend:   backend,
		digests:   digests,
	}
}

// Router wires all endpoints
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	router.HandleFunc("/api/facets", s.handleFacets).Methods("GET")
	router.HandleFunc("/api/sentiment/timeline", s.handleSentimentTimeline).Methods("GET")
	router.HandleFunc("/api/sentiment/breakdown", s.handleSentimentBreakdown).Methods("GET")
	router.HandleFunc("/api/posts/volume", s.handlePostVolume).Methods("GET")
	router.HandleFunc("/api/topics", s.handleTopics).Methods("GET")
	router.HandleFunc("/api/labels", s.handleLabels).Methods("GET")
	router.HandleFunc("/api/keywords", s.handleKeywords).Methods("GET")
	router.HandleFunc("/api/symptoms", s.handleSymptoms).Methods("GET")
	router.HandleFunc("/api/engagement", s.handleEngagement).Methods("GET")
	router.HandleFunc("/api/analytics/{topic}", s.handleTopicExport).Methods("GET")

	router.HandleFunc("/reload", s.handleReload).Methods("POST")
	router.HandleFunc("/trigger", s.handleTrigger).Methods("POST")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	s.mu.Lock()
	current := s.metrics
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests":      current.Requests,
		"facet_errors":  current.FacetErrors,
		"server_errors": current.ServerErrors,
		"posts":         len(snap.Posts),
		"platforms":     snap.Platforms,
		"loaded_at":     snap.LoadedAt.Format(time.RFC3339),
	})
}

// handleFacets enumerates the facet values the corpus actually carries, so
// clients can build selection controls from data instead of hardcoding them
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"platforms": snap.Platforms,
		"labels":    snap.Labels,
		"min_date":  snap.MinDate.Format("2006-01-02"),
		"max_date":  snap.MaxDate.Format("2006-01-02"),
	})
}

func (s *Server) handleSentimentTimeline(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("by") == "platform" {
		s.writeView(w, view, map[string]interface{}{
			"series": s.aggregate.SentimentByPlatform(view),
		})
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"points": s.aggregate.SentimentMerged(view),
	})
}

func (s *Server) handleSentimentBreakdown(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"breakdown": s.aggregate.SentimentBreakdown(view),
	})
}

func (s *Server) handlePostVolume(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"points": s.aggregate.PostVolume(view),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"topics": s.aggregate.TopicFrequency(view, queryLimit(r)),
	})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	labels := splitParam(r.URL.Query().Get("labels"))
	if len(labels) == 0 {
		labels = s.store.Snapshot().Labels
	}
	s.writeView(w, view, map[string]interface{}{
		"labels": s.aggregate.LabelFrequency(view, labels),
	})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"keywords": s.aggregate.WeeklyKeywordFrequency(view, queryLimit(r)),
	})
}

func (s *Server) handleSymptoms(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"symptoms": s.aggregate.SymptomFrequency(view, queryLimit(r)),
	})
}

func (s *Server) handleEngagement(w http.ResponseWriter, r *http.Request) {
	view, ok := s.filteredView(w, r)
	if !ok {
		return
	}
	s.writeView(w, view, map[string]interface{}{
		"engagement": s.aggregate.EngagementTotals(view),
	})
}

// handleTopicExport serves a precomputed per-topic tabular extract as a JSON
// record list. Failures produce a structured payload, never a crash.
func (s *Server) handleTopicExport(w http.ResponseWriter, r *http.Request) {
	s.count(func(m *metrics) { m.Requests++ })

	topic := mux.Vars(r)["topic"]
	if !topicNamePattern.MatchString(topic) {
		s.writeError(w, http.StatusBadRequest, "invalid topic name")
		return
	}

	name := path.Join(s.cfg.TopicDataDir, topic+".csv")
	data, err := s.backend.Retrieve(name)
	if err != nil {
		logrus.Errorf("Failed to read topic extract %s: %v", name, err)
		s.count(func(m *metrics) { m.ServerErrors++ })
		s.writeError(w, http.StatusInternalServerError, "failed to fetch data")
		return
	}

	records, err := csvRecords(data)
	if err != nil {
		logrus.Errorf("Failed to parse topic extract %s: %v", name, err)
		s.count(func(m *metrics) { m.ServerErrors++ })
		s.writeError(w, http.StatusInternalServerError, "failed to fetch data")
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Load(); err != nil {
		logrus.Errorf("Corpus reload failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	s.count(func(m *metrics) { m.LastReload = time.Now().UTC() })
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "corpus reloaded"})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.digests == nil {
		s.writeError(w, http.StatusConflict, "digests are not configured")
		return
	}
	go func() {
		if err := s.digests.Run(); err != nil {
			logrus.Errorf("Manual digest trigger failed: %v", err)
		}
	}()
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "digest triggered"})
}

// filteredView parses the facet query parameters and applies the filter
// engine, writing the error response itself when the selection is invalid
func (s *Server) filteredView(w http.ResponseWriter, r *http.Request) (*filter.Result, bool) {
	s.count(func(m *metrics) { m.Requests++ })

	facets := parseFacets(r)
	view, err := s.filter.Apply(s.store.Snapshot(), facets)
	if err != nil {
		var facetErr *filter.InvalidFacetError
		var dateErr *filter.InvalidDateRangeError
		if errors.As(err, &facetErr) || errors.As(err, &dateErr) {
			s.count(func(m *metrics) { m.FacetErrors++ })
			s.writeError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		logrus.Errorf("Filter failed: %v", err)
		s.count(func(m *metrics) { m.ServerErrors++ })
		s.writeError(w, http.StatusInternalServerError, "filter failed")
		return nil, false
	}
	return view, true
}

func parseFacets(r *http.Request) models.FacetSelection {
	query := r.URL.Query()
	return models.FacetSelection{
		Platforms:      splitParam(query.Get("platforms")),
		Categories:     splitParam(query.Get("categories")),
		Identity:       query.Get("identity"),
		AccountType:    query.Get("type"),
		Location:       query.Get("location"),
		TimeMode:       query.Get("time"),
		RelativeWindow: query.Get("window"),
		RangeStart:     query.Get("start"),
		RangeEnd:       query.Get("end"),
	}
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func queryLimit(r *http.Request) int {
	if value := r.URL.Query().Get("limit"); value != "" {
		if limit, err := strconv.Atoi(value); err == nil {
			return limit
		}
	}
	return 0
}

func csvRecords(data []byte) ([]map[string]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	records := []map[string]string{}
	if len(rows) < 2 {
		return records, nil
	}
	header := rows[0]
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// writeView wraps an aggregation payload with the resolved date bounds so
// every chart sees the same axis range
func (s *Server) writeView(w http.ResponseWriter, view *filter.Result, payload map[string]interface{}) {
	payload["start"] = view.Start.Format("2006-01-02")
	payload["end"] = view.End.Format("2006-01-02")
	payload["total_posts"] = len(view.Posts)
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) count(update func(*metrics)) {
	s.mu.Lock()
	update(&s.metrics)
	s.mu.Unlock()
}
