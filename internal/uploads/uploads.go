// Package uploads stores plant images on disk and answers "what is the
// latest image" cheaply for the polling front-end.
package uploads

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	latestKey = "latest"

	// latestTTL bounds how stale the cached answer can be; the dashboard
	// polls far more often than images arrive.
	latestTTL = 5 * time.Second
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Store is a directory of uploaded images with a short-lived cache over the
// newest-file lookup.
type Store struct {
	dir    string
	cache  *gocache.Cache
	logger *slog.Logger

	now func() time.Time
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:    dir,
		cache:  gocache.New(latestTTL, time.Minute),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Dir returns the directory images are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Allowed reports whether the filename carries an accepted image extension.
func (s *Store) Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Save writes the image under a timestamp-prefixed name and returns the
// stored filename.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	if !s.Allowed(filename) {
		return "", fmt.Errorf("uploads: extension not allowed: %s", filepath.Ext(filename))
	}

	name := s.now().Format("20060102150405") + "_" + filepath.Base(filename)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}

	s.cache.Delete(latestKey)
	s.logger.Info("image stored", "filename", name)
	return name, nil
}

// Latest returns the filename of the most recently modified image, or ""
// when none exist. The directory scan is cached briefly.
func (s *Store) Latest() (string, error) {
	if cached, ok := s.cache.Get(latestKey); ok {
		return cached.(string), nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("scan upload dir: %w", err)
	}

	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !s.Allowed(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = entry.Name()
			latestMod = info.ModTime()
		}
	}

	s.cache.Set(latestKey, latest, gocache.DefaultExpiration)
	return latest, nil
}
