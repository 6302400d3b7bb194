package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cacheFileName is the snapshot file kept inside the cache directory.
const cacheFileName = "weather_cache.json"

// Cache persists the last successful payload so a restart shows weather
// before the first fetch completes, and so a broken provider degrades to
// stale data instead of a blank panel.
type Cache struct {
	path string
}

// NewCache creates a cache rooted in dir. The directory is created lazily on
// first save.
func NewCache(dir string) *Cache {
	return &Cache{path: filepath.Join(dir, cacheFileName)}
}

// Path returns the snapshot file location.
func (c *Cache) Path() string {
	return c.path
}

// cachedSnapshot is the on-disk shape: the payload plus when it was fetched,
// so a seeded store can report the true age of the data.
type cachedSnapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Data      map[string]any `json:"data"`
}

// Save writes data stamped with the current time. The write goes to a temp
// file in the same directory and is renamed into place, so a crash mid-write
// never leaves a torn snapshot.
func (c *Cache) Save(data map[string]any) error {
	raw, err := json.Marshal(cachedSnapshot{FetchedAt: time.Now(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".weather-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file or an empty payload returns a nil
// map and no error; a file that exists but cannot be read or decoded returns
// an error.
func (c *Cache) Load() (map[string]any, time.Time, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap cachedSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if len(snap.Data) == 0 {
		return nil, time.Time{}, nil
	}
	return snap.Data, snap.FetchedAt, nil
}
