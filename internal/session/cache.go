// ABOUTME: Durable cache of the signed-in user's profile
// ABOUTME: Stores the profile as JSON under the config directory

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// CacheKey names the cached profile record
const CacheKey = "auth_user"

// Cache persists the last known profile between runs. It is a UX aid only;
// a cached profile is never proof of a live session.
type Cache interface {
	Load() (*Profile, error)
	Save(p *Profile) error
	Clear() error
}

// FileCache keeps the profile in <dir>/auth_user.json
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir. An empty dir disables
// persistence: Load finds nothing and Save/Clear do nothing.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

func (c *FileCache) path() string {
	return filepath.Join(c.dir, CacheKey+".json")
}

// Load returns the cached profile, or nil when there is none.
// An unreadable or invalid record counts as none.
func (c *FileCache) Load() (*Profile, error) {
	if c.dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil || p.Username == "" {
		return nil, nil
	}
	return &p, nil
}

// Save writes the profile, creating the directory when needed
func (c *FileCache) Save(p *Profile) error {
	if c.dir == "" {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path(), data, 0600)
}

// Clear removes the cached profile
func (c *FileCache) Clear() error {
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
