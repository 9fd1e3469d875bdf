package report

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/aggregate"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/filter"
	"github.com/vargen/social-analytics/internal/models"
	"github.com/vargen/social-analytics/internal/notifications"
)

// Service builds periodic digests from the corpus through the same filter
// and aggregation engines the HTTP API uses
type Service struct {
	config              *config.Config
	store               *corpus.Store
	filter              *filter.Engine
	aggregate           *aggregate.Engine
	notificationService notifications.NotificationInterface
}

// NewService creates a digest service
func NewService(cfg *config.Config, store *corpus.Store, filterEngine *filter.Engine, aggregateEngine *aggregate.Engine, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		store:               store,
		filter:              filterEngine,
		aggregate:           aggregateEngine,
		notificationService: notificationService,
	}
}

// Run builds the digest for the configured period and sends it
func (s *Service) Run() error {
	start := time.Now()
	logrus.Info("Starting digest run")

	digest, err := s.BuildDigest()
	if err != nil {
		return fmt.Errorf("failed to build digest: %w", err)
	}

	if err := s.notificationService.SendDigest(digest); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	logrus.Infof("Digest run completed in %v (%d posts)", time.Since(start), digest.TotalPosts)
	return nil
}

// BuildDigest summarizes the digest window of the corpus
func (s *Service) BuildDigest() (*models.Digest, error) {
	// Both schedules summarize the trailing week; the 7-day window is the
	// shortest the facet set offers
	view, err := s.filter.Apply(s.store.Snapshot(), models.FacetSelection{
		TimeMode:       models.TimeModeRelative,
		RelativeWindow: models.WindowLast7Days,
	})
	if err != nil {
		return nil, err
	}

	breakdown := s.aggregate.SentimentBreakdown(view)
	engagement := s.aggregate.EngagementTotals(view)
	topics := s.aggregate.TopicFrequency(view, 5)

	digest := &models.Digest{
		GeneratedAt:    time.Now().UTC(),
		Period:         s.config.DigestSchedule,
		Start:          view.Start,
		End:            view.End,
		TotalPosts:     len(view.Posts),
		TotalReactions: engagement.TotalReactions,
		Sentiment: map[string]int{
			aggregate.SentimentPositive: breakdown.Positive,
			aggregate.SentimentNegative: breakdown.Negative,
			aggregate.SentimentNeutral:  breakdown.Neutral,
		},
		PlatformCounts: make(map[string]int),
	}

	for _, post := range view.Posts {
		digest.PlatformCounts[post.Platform]++
	}
	for _, topic := range topics {
		digest.TopTopics = append(digest.TopTopics, topic.Name)
	}

	return digest, nil
}
