// ABOUTME: Cookie jar that survives process restarts
// ABOUTME: Persists the backend's session cookies under the config directory

package client

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// CookieFileName is the file holding persisted cookies
const CookieFileName = "cookies.json"

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FileJar is an http.CookieJar that mirrors the cookies for one backend to a
// JSON file. An empty path keeps cookies in memory only.
type FileJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	base   *url.URL
	path   string
	logger *zap.Logger
}

// NewFileJar creates a jar for baseURL, restoring cookies saved at path
func NewFileJar(baseURL, path string) (*FileJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	j := &FileJar{base: base, path: path, logger: zap.NewNop()}
	j.jar, _ = cookiejar.New(nil)

	if err := j.restore(); err != nil {
		return nil, err
	}
	return j, nil
}

// NewMemoryJar creates a jar that is never written to disk
func NewMemoryJar(baseURL string) *FileJar {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}
	jar, _ := cookiejar.New(nil)
	return &FileJar{base: base, jar: jar, logger: zap.NewNop()}
}

// SetLogger sets the logger that reports cookie persistence failures
func (j *FileJar) SetLogger(logger *zap.Logger) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if logger == nil {
		logger = zap.NewNop()
	}
	j.logger = logger
}

// DefaultCookiePath returns the cookie file location inside configDir
func DefaultCookiePath(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, CookieFileName)
}

// SetCookies implements http.CookieJar
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if err := j.save(); err != nil {
		j.logger.Warn("failed to persist cookies", zap.String("path", j.path), zap.Error(err))
	}
}

// Cookies implements http.CookieJar
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.jar.Cookies(u)
}

// Clear forgets every cookie and removes the cookie file
func (j *FileJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar, _ = cookiejar.New(nil)
	if j.path == "" {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// save writes the cookies visible to the base URL. Callers hold j.mu.
func (j *FileJar) save() error {
	if j.path == "" {
		return nil
	}

	current := j.jar.Cookies(j.base)
	if len(current) == 0 {
		if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	stored := make([]storedCookie, 0, len(current))
	for _, c := range current {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0600)
}

func (j *FileJar) restore() error {
	if j.path == "" {
		return nil
	}

	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		// Corrupt file, start without cookies
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	j.jar.SetCookies(j.base, cookies)
	return nil
}
