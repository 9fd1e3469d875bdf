package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage reads and writes files under a base directory
type LocalStorage struct {
	baseDir string
}

// Ensure LocalStorage implements Interface
var _ Interface = (*LocalStorage)(nil)

// NewLocalStorage creates a storage backend rooted at baseDir
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "."
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access base directory %s: %w", baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", baseDir)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Store writes data to a file under the base directory
func (s *LocalStorage) Store(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	logrus.Debugf("Stored %s in local storage", name)
	return nil
}

// Retrieve reads a file under the base directory
func (s *LocalStorage) Retrieve(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns file names under the base directory matching the prefix
func (s *LocalStorage) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list local storage: %w", err)
	}
	return names, nil
}

// resolve rejects names that escape the base directory
func (s *LocalStorage) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage name %q", name)
	}
	return filepath.Join(s.baseDir, clean), nil
}
