package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/report"
)

// Service schedules periodic digest runs
type Service struct {
	config        *config.Config
	reportService *report.Service
	cron          *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, reportService *report.Service) *Service {
	return &Service{
		config:        cfg,
		reportService: reportService,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled digest runs
func (s *Service) Start() error {
	if s.config.DigestSchedule == "off" {
		logrus.Info("Digest schedule disabled")
		return nil
	}

	var cronExpression string
	switch s.config.DigestSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled digest run")
		if err := s.reportService.Run(); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
