package notifications

import "github.com/vargen/social-analytics/internal/models"

// NotificationInterface defines the digest delivery contract
type NotificationInterface interface {
	SendDigest(digest *models.Digest) error
}
