package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures API
// credentials, collection limits, the controller's stopping rules, and the
// storage/export/metrics surfaces.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	API         APIConfig         `yaml:"api"`
	Collector   CollectorConfig   `yaml:"collector"`
	Controller  ControllerConfig  `yaml:"controller"`
	Storage     StorageConfig     `yaml:"storage"`
	Export      ExportConfig      `yaml:"export"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type CredentialsConfig struct {
	// twitterapi.io API key. If empty, read from env TWITTER_API_KEY.
	APIKey string `yaml:"apiKey"`
}

type APIConfig struct {
	BaseURL string `yaml:"baseURL"`
	// Per-call HTTP timeout in seconds
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	// Client-side request budget
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Rate-limit backoff: wait min(ceiling, base*2^n) between 429 retries
	BackoffBaseSeconds    int `yaml:"backoffBaseSeconds"`
	BackoffCeilingSeconds int `yaml:"backoffCeilingSeconds"`
	// Retry budget for transient (non rate-limit) failures
	TransientAttempts int `yaml:"transientAttempts"`
}

type CollectorConfig struct {
	QueryType          string `yaml:"queryType"` // Latest or Top
	MaxSeedTweets      int    `yaml:"maxSeedTweets"`
	MaxRepliesPerTweet int    `yaml:"maxRepliesPerTweet"`
	IncludeThread      bool   `yaml:"includeThread"`
	MaxConcurrent      int    `yaml:"maxConcurrent"`
}

type ControllerConfig struct {
	TargetTweetCount  int `yaml:"targetTweetCount"`
	MaxAttempts       int `yaml:"maxAttempts"`
	LowYieldThreshold int `yaml:"lowYieldThreshold"`
	LowYieldStreak    int `yaml:"lowYieldStreak"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Credentials: CredentialsConfig{APIKey: ""},
		API: APIConfig{
			BaseURL:               "https://api.twitterapi.io",
			TimeoutSeconds:        30,
			RPS:                   2.0,
			Burst:                 10,
			BackoffBaseSeconds:    60,
			BackoffCeilingSeconds: 900,
			TransientAttempts:     3,
		},
		Collector: CollectorConfig{
			QueryType:          "Latest",
			MaxSeedTweets:      500,
			MaxRepliesPerTweet: 10,
			IncludeThread:      true,
			MaxConcurrent:      10,
		},
		Controller: ControllerConfig{
			TargetTweetCount:  2000,
			MaxAttempts:       10,
			LowYieldThreshold: 10,
			LowYieldStreak:    3,
		},
		Storage: StorageConfig{DBPath: "./tnega.db"},
		Export:  ExportConfig{Dir: "./data/collections"},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.APIKey == "" {
		c.Credentials.APIKey = os.Getenv("TWITTER_API_KEY")
	}
	if v := os.Getenv("TWITTER_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TNEGA_METRICS_ADDR"); v != "" && c.Metrics.Addr == "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("TNEGA_TARGET_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Controller.TargetTweetCount = n
		}
	}
}

// Validate rejects limits that would make a run misbehave. Called before any
// network work.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.baseURL is empty")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeoutSeconds must be positive, got %d", c.API.TimeoutSeconds)
	}
	if c.Collector.MaxSeedTweets <= 0 {
		return fmt.Errorf("collector.maxSeedTweets must be positive, got %d", c.Collector.MaxSeedTweets)
	}
	if c.Collector.MaxRepliesPerTweet <= 0 {
		return fmt.Errorf("collector.maxRepliesPerTweet must be positive, got %d", c.Collector.MaxRepliesPerTweet)
	}
	if c.Collector.MaxConcurrent <= 0 {
		return fmt.Errorf("collector.maxConcurrent must be positive, got %d", c.Collector.MaxConcurrent)
	}
	if qt := c.Collector.QueryType; qt != "Latest" && qt != "Top" {
		return fmt.Errorf("collector.queryType must be Latest or Top, got %q", qt)
	}
	if c.Controller.TargetTweetCount <= 0 {
		return fmt.Errorf("controller.targetTweetCount must be positive, got %d", c.Controller.TargetTweetCount)
	}
	if c.Controller.MaxAttempts <= 0 {
		return fmt.Errorf("controller.maxAttempts must be positive, got %d", c.Controller.MaxAttempts)
	}
	if c.Controller.LowYieldThreshold < 0 {
		return fmt.Errorf("controller.lowYieldThreshold must not be negative, got %d", c.Controller.LowYieldThreshold)
	}
	if c.Controller.LowYieldStreak <= 0 {
		return fmt.Errorf("controller.lowYieldStreak must be positive, got %d", c.Controller.LowYieldStreak)
	}
	return nil
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
