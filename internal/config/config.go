// Package config loads application configuration from an optional YAML
// file, an optional .env file and the process environment, in that order
// of increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIConfig describes the REST backend.
type APIConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:8080/api".
	BaseURL string `yaml:"base_url"`
	// RequestTimeout bounds each request. Zero leaves the transport default.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SessionConfig controls web cookie sessions.
type SessionConfig struct {
	// Secret authenticates session cookies. When empty a random key is
	// generated at start-up and sessions do not survive restarts.
	Secret string        `yaml:"secret"`
	MaxAge time.Duration `yaml:"max_age"`
}

// AuthConfig controls the demo authenticator.
type AuthConfig struct {
	SigningKey string        `yaml:"signing_key"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the top-level configuration.
type Config struct {
	// Listen is the web frontend listen address.
	Listen string `yaml:"listen"`
	// PublicURL is the externally visible frontend URL, used in calendar exports.
	PublicURL string `yaml:"public_url"`
	// SessionFile is where eventsctl persists the signed-in viewer.
	SessionFile string `yaml:"session_file"`

	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:3000",
		PublicURL:   "http://localhost:3000",
		SessionFile: defaultSessionFile(),
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
		},
		Session: SessionConfig{
			MaxAge: 7 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			SigningKey: "dev-signing-key",
			TokenTTL:   24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Normalize fills zero values with defaults so partially filled files work.
func (c *Config) Normalize() {
	def := Default()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.PublicURL == "" {
		c.PublicURL = def.PublicURL
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if c.SessionFile == "" {
		c.SessionFile = def.SessionFile
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestTimeout < 0 {
		c.API.RequestTimeout = 0
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = def.Session.MaxAge
	}
	if c.Auth.SigningKey == "" {
		c.Auth.SigningKey = def.Auth.SigningKey
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Load reads path (if it exists), then dotenv (if it exists), then applies
// environment overrides. An empty path skips the YAML step.
func Load(path, dotenv string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	if dotenv != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Listen = getEnv("EVENTHUB_LISTEN", c.Listen)
	c.PublicURL = getEnv("EVENTHUB_PUBLIC_URL", c.PublicURL)
	c.SessionFile = getEnv("EVENTHUB_SESSION_FILE", c.SessionFile)
	c.API.BaseURL = getEnv("EVENTHUB_API_URL", c.API.BaseURL)
	c.API.RequestTimeout = getDuration("EVENTHUB_API_TIMEOUT", c.API.RequestTimeout)
	c.Session.Secret = getEnv("EVENTHUB_SESSION_SECRET", c.Session.Secret)
	c.Session.MaxAge = getDuration("EVENTHUB_SESSION_MAX_AGE", c.Session.MaxAge)
	c.Auth.SigningKey = getEnv("EVENTHUB_SIGNING_KEY", c.Auth.SigningKey)
	c.Auth.TokenTTL = getDuration("EVENTHUB_TOKEN_TTL", c.Auth.TokenTTL)
	c.Log.Level = getEnv("EVENTHUB_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("EVENTHUB_LOG_FILE", c.Log.File)

	// PORT is honoured the way most hosting platforms set it.
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.Listen = ":" + port
		}
	}
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path, then renames it
// over path. The parent directory is created with 0700.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "eventhub", "session.yaml")
}
