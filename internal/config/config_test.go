package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Collector.MaxSeedTweets = 0 },
		func(c *Config) { c.Collector.MaxRepliesPerTweet = -1 },
		func(c *Config) { c.Collector.MaxConcurrent = 0 },
		func(c *Config) { c.Collector.QueryType = "Oldest" },
		func(c *Config) { c.Controller.TargetTweetCount = 0 },
		func(c *Config) { c.Controller.MaxAttempts = -2 },
		func(c *Config) { c.Controller.LowYieldStreak = 0 },
		func(c *Config) { c.API.TimeoutSeconds = 0 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tnega.yaml")
	cfg := Default()
	cfg.Controller.TargetTweetCount = 42
	cfg.Collector.IncludeThread = false
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Controller.TargetTweetCount != 42 {
		t.Fatalf("target: got %d", got.Controller.TargetTweetCount)
	}
	if got.Collector.IncludeThread {
		t.Fatal("includeThread should round-trip false")
	}
	if got.API.BaseURL != cfg.API.BaseURL {
		t.Fatalf("baseURL: got %s", got.API.BaseURL)
	}
}
