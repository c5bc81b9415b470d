// ABOUTME: Configuration loader for the record-admin client
// ABOUTME: Merges defaults, YAML file, .env and RECORD_ADMIN_* environment variables

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix shared by all environment overrides
const EnvPrefix = "RECORD_ADMIN_"

const (
	defaultAPIURL     = "http://localhost:8080/api"
	defaultTimeout    = 30 * time.Second
	defaultLogLevel   = "info"
	defaultLogFormat  = "console"
	defaultDevAddr    = "127.0.0.1:8080"
	defaultSessionTTL = time.Hour
	maxConfigFileSize = 1024 * 1024
)

// Config holds client settings
type Config struct {
	API       APIConfig `koanf:"api"`
	Log       LogConfig `koanf:"log"`
	Dev       DevConfig `koanf:"dev"`
	ConfigDir string    `koanf:"config_dir"`
}

// APIConfig describes the backend the client talks to
type APIConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

// DevConfig configures the development backend
type DevConfig struct {
	Addr       string        `koanf:"addr"`
	SessionTTL time.Duration `koanf:"session_ttl"`
	UsersFile  string        `koanf:"users_file"`
}

// DefaultConfigDir returns the default config directory following XDG spec
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "record-admin")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "record-admin")
}

// Load reads configuration with the following precedence (highest first):
//  1. RECORD_ADMIN_* environment variables (including ones set by a .env file
//     in the working directory)
//  2. YAML config file (configPath, or <config dir>/config.yaml when empty)
//  3. Hardcoded defaults
//
// A missing config file or .env file is not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if configPath == "" {
		dir := os.Getenv(EnvPrefix + "CONFIG_DIR")
		if dir == "" {
			dir = DefaultConfigDir()
		}
		if dir != "" {
			configPath = filepath.Join(dir, "config.yaml")
		}
	}

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// RECORD_ADMIN_API_URL -> api.url, RECORD_ADMIN_CONFIG_DIR -> config_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if lower == "config_dir" {
		return lower
	}
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = defaultAPIURL
	}
	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}
	if cfg.Dev.Addr == "" {
		cfg.Dev.Addr = defaultDevAddr
	}
	if cfg.Dev.SessionTTL == 0 {
		cfg.Dev.SessionTTL = defaultSessionTTL
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = DefaultConfigDir()
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must use http or https, got %q", c.API.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.url has no host: %q", c.API.URL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout)
	}
	if c.Dev.SessionTTL < 0 {
		return fmt.Errorf("dev.session_ttl must not be negative, got %s", c.Dev.SessionTTL)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// WithAPIURL returns a copy of the config pointing at a different backend
func (c Config) WithAPIURL(apiURL string) (*Config, error) {
	c.API.URL = strings.TrimRight(apiURL, "/")
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
