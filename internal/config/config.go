package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Default values
const (
	DefaultBaseURL         = "https://vixsrc.to"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultLanguage        = "en"
	DefaultQuality         = "best"
	DefaultTimeoutSec      = 30
	DefaultParallel        = 1
	DefaultFragConcurrency = 5
	EnvTMDBAPIKey          = "TMDB_API_KEY"
	DefaultCommandTimeout  = 0 // no child-process timeout
)

// Config holds the tool configuration. Values come from an optional YAML
// file plus the environment; CLI flags override both.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	Language string `yaml:"language"`
	Quality  string `yaml:"quality"`

	// TimeoutSec bounds every single HTTP request (extraction fetch,
	// verification, API probes).
	TimeoutSec int `yaml:"timeout_sec"`

	// Parallel is the batch concurrency bound; 1 means fully sequential.
	Parallel int `yaml:"parallel"`

	// FragConcurrency is passed to yt-dlp as its fragment download hint.
	FragConcurrency int `yaml:"ytdlp_concurrency"`

	// CommandTimeoutSec bounds each child-process invocation; 0 disables
	// the bound and lets the process run to completion.
	CommandTimeoutSec int `yaml:"command_timeout_sec"`

	TMDBAPIKey string `yaml:"tmdb_api_key"`
}

// Load reads the config file at path (missing file is not an error) and
// overlays environment values. A .env file in the working directory is
// honored for the TMDB key.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		Language:          DefaultLanguage,
		Quality:           DefaultQuality,
		TimeoutSec:        DefaultTimeoutSec,
		Parallel:          DefaultParallel,
		FragConcurrency:   DefaultFragConcurrency,
		CommandTimeoutSec: DefaultCommandTimeout,
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			defer f.Close()
			dec := yaml.NewDecoder(f)
			if err := dec.Decode(cfg); err != nil {
				return nil, err
			}
		}
	}

	if cfg.TMDBAPIKey == "" {
		cfg.TMDBAPIKey = os.Getenv(EnvTMDBAPIKey)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize repairs out-of-range values instead of failing.
func (c *Config) normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Quality == "" {
		c.Quality = DefaultQuality
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = DefaultTimeoutSec
	}
	if c.Parallel < 1 {
		c.Parallel = DefaultParallel
	}
	if c.FragConcurrency < 1 {
		c.FragConcurrency = DefaultFragConcurrency
	}
	if c.CommandTimeoutSec < 0 {
		c.CommandTimeoutSec = DefaultCommandTimeout
	}
}

// Timeout returns the HTTP request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CommandTimeout returns the child-process timeout, zero when disabled.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSec) * time.Second
}
