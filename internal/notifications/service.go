package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/models"
	"gopkg.in/gomail.v2"
)

// Service delivers corpus digests via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends a digest via every configured notification channel
func (s *Service) SendDigest(digest *models.Digest) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	message := s.buildTeamsMessage(digest)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Social Media Analytics Digest - %s", capitalize(digest.Period)),
		Text: fmt.Sprintf("%d posts and %d reactions between %s and %s",
			digest.TotalPosts, digest.TotalReactions,
			digest.Start.Format("Jan 2, 2006"), digest.End.Format("Jan 2, 2006")),
	}

	facts := []TeamsFact{
		{Name: "Total Posts", Value: fmt.Sprintf("%d", digest.TotalPosts)},
		{Name: "Total Reactions", Value: fmt.Sprintf("%d", digest.TotalReactions)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for sentiment, count := range digest.Sentiment {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Posts", capitalize(sentiment)),
			Value: fmt.Sprintf("%d", count),
		})
	}
	for platform, count := range digest.PlatformCounts {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Posts", capitalize(platform)),
			Value: fmt.Sprintf("%d", count),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.TopTopics) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Hot Topics",
			ActivityText:  strings.Join(digest.TopTopics, ", "),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("Social Media Analytics Digest - %s (%d posts)",
		capitalize(digest.Period), digest.TotalPosts)

	htmlBody, err := s.buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(digest)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(digest *models.Digest) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Social Media Analytics Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2d5986; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .topics { border-left: 4px solid #2d5986; padding: 10px; margin: 10px 0; background-color: #fafafa; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Social Media Analytics Digest</h1>
        <p>{{.Period | title}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
        <p>Covering {{.Start.Format "Jan 2, 2006"}} through {{.End.Format "Jan 2, 2006"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Posts:</strong> {{.TotalPosts}}</p>
        <p><strong>Total Reactions:</strong> {{.TotalReactions}}</p>
        {{range $sentiment, $count := .Sentiment}}
            <p><strong>{{$sentiment | title}} Posts:</strong> {{$count}}</p>
        {{end}}
        {{range $platform, $count := .PlatformCounts}}
            <p><strong>{{$platform | title}} Posts:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .TopTopics}}
    <div class="topics">
        <h2>Hot Topics</h2>
        <p>{{join .TopTopics ", "}}</p>
    </div>
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the social analytics service.</small></p>
</body>
</html>
`

	t := template.New("email").Funcs(template.FuncMap{
		"title": capitalize,
		"join":  strings.Join,
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, digest); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Social Media Analytics Digest - %s\n", capitalize(digest.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Covering: %s to %s\n\n",
		digest.Start.Format("2006-01-02"), digest.End.Format("2006-01-02")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Posts: %d\n", digest.TotalPosts))
	text.WriteString(fmt.Sprintf("Total Reactions: %d\n", digest.TotalReactions))

	for sentiment, count := range digest.Sentiment {
		text.WriteString(fmt.Sprintf("%s Posts: %d\n", capitalize(sentiment), count))
	}
	for platform, count := range digest.PlatformCounts {
		text.WriteString(fmt.Sprintf("%s Posts: %d\n", capitalize(platform), count))
	}

	if len(digest.TopTopics) > 0 {
		text.WriteString("\nHOT TOPICS\n")
		text.WriteString("==========\n")
		text.WriteString(strings.Join(digest.TopTopics, ", "))
		text.WriteString("\n")
	}

	text.WriteString("\n---\nThis digest was generated automatically by the social analytics service.\n")

	return text.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
