package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RemoteStorage fetches snapshots published at an HTTP base URL
type RemoteStorage struct {
	baseURL string
	client  *resty.Client
}

// Ensure RemoteStorage implements Interface
var _ Interface = (*RemoteStorage)(nil)

// NewRemoteStorage creates a read-only HTTP snapshot backend
func NewRemoteStorage(baseURL string) (*RemoteStorage, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("snapshot base URL is required")
	}
	return &RemoteStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  resty.New().SetTimeout(60 * time.Second),
	}, nil
}

// Store is not supported for the HTTP backend
func (s *RemoteStorage) Store(name string, data []byte) error {
	return fmt.Errorf("remote snapshot storage is read-only")
}

// Retrieve downloads a snapshot file from the base URL
func (s *RemoteStorage) Retrieve(name string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, strings.TrimLeft(name, "/"))

	resp, err := s.client.R().
		SetHeader("User-Agent", "social-analytics/1.0").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("snapshot server returned status %d for %s", resp.StatusCode(), url)
	}

	logrus.Debugf("Fetched %d bytes from %s", len(resp.Body()), url)
	return resp.Body(), nil
}

// List is not supported for the HTTP backend
func (s *RemoteStorage) List(prefix string) ([]string, error) {
	return nil, fmt.Errorf("remote snapshot storage does not support listing")
}
