package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/siftlabs/sift/pkg/score"
	"github.com/siftlabs/sift/pkg/taxonomy"
)

// WeightEpsilon is the tolerance when checking that weights sum to 1.0.
const WeightEpsilon = 1e-6

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Project   ProjectConfig   `yaml:"project"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Batch     BatchConfig     `yaml:"batch"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Sources   SourcesConfig   `yaml:"sources"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig configures SQLite storage (embedding cache + results).
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProjectConfig is the per-project scoring configuration: the taxonomy, the
// score weights and thresholds, and the hard exclusion rules. Loaded once
// per run and read-only during scoring.
type ProjectConfig struct {
	Name              string           `yaml:"name"`
	Topics            []taxonomy.Topic `yaml:"topics"`
	Weights           score.Weights    `yaml:"weights"`
	Thresholds        score.Thresholds `yaml:"thresholds"`
	BlacklistKeywords []string         `yaml:"blacklist_keywords"`
	BlacklistHandles  []string         `yaml:"blacklist_handles"`
	WhitelistHandles  []string         `yaml:"whitelist_handles"`
	AllowedLanguage   string           `yaml:"allowed_language"`
	RelevanceFloor    float64          `yaml:"relevance_floor"`
	RelevanceTarget   float64          `yaml:"relevance_target"`
	VelocityReference float64          `yaml:"velocity_reference"`
}

// EmbeddingConfig configures the external embedding collaborator.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cache_size"`
}

// BatchConfig tunes the orchestrator.
type BatchConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	FailureBudget int     `yaml:"failure_budget"`
}

// ScheduleConfig configures the periodic batch loop.
type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// ParseInterval returns the batch interval as a time.Duration.
func (s ScheduleConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// SourcesConfig holds configuration for post ingestion adapters.
type SourcesConfig struct {
	Feeds []FeedItem  `yaml:"feeds"`
	JSONL JSONLConfig `yaml:"jsonl"`
}

// FeedItem is a single feed (e.g. a Nitter search feed) to poll for posts.
type FeedItem struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
}

// JSONLConfig points at a line-delimited JSON file of posts.
type JSONLConfig struct {
	Path string `yaml:"path"`
}

// AlertsConfig configures green-result notification destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with sensible defaults. The topic list is empty
// on purpose: a project must define its own taxonomy, and Validate rejects
// a config without one.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./sift.db"},
		Project: ProjectConfig{
			Weights: score.Weights{
				Velocity:      0.25,
				Relevance:     0.40,
				Openness:      0.20,
				AuthorQuality: 0.15,
			},
			Thresholds:        score.Thresholds{GreenMin: 0.65, YellowMin: 0.45},
			AllowedLanguage:   "en",
			RelevanceFloor:    0.25,
			RelevanceTarget:   0.75,
			VelocityReference: 30,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			CacheSize: 4096,
		},
		Batch: BatchConfig{
			Concurrency:   4,
			RatePerSecond: 10,
			FailureBudget: 5,
		},
		Schedule: ScheduleConfig{Interval: "15m"},
		Server:   ServerConfig{Port: 8080},
		Log:      LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads configuration from a YAML file, applies env var overrides, and
// validates. A config that fails validation is never returned partially.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidationError reports a config that cannot be scored with. Always fatal
// before any scoring happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate fails fast on a config the engine cannot honor. Weights are
// never silently renormalized; a wrong sum is the operator's bug to fix.
func (c *Config) Validate() error {
	if len(c.Project.Topics) == 0 {
		return &ValidationError{Field: "project.topics", Reason: "at least one topic is required"}
	}
	seen := make(map[string]bool, len(c.Project.Topics))
	for i, topic := range c.Project.Topics {
		if topic.ID == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("project.topics[%d].id", i),
				Reason: "topic id is required",
			}
		}
		if seen[topic.ID] {
			return &ValidationError{
				Field:  fmt.Sprintf("project.topics[%d].id", i),
				Reason: fmt.Sprintf("duplicate topic id %q", topic.ID),
			}
		}
		seen[topic.ID] = true
	}

	if sum := c.Project.Weights.Sum(); math.Abs(sum-1.0) > WeightEpsilon {
		return &ValidationError{
			Field:  "project.weights",
			Reason: fmt.Sprintf("must sum to 1.0, got %.6f", sum),
		}
	}

	th := c.Project.Thresholds
	if th.GreenMin <= th.YellowMin {
		return &ValidationError{
			Field:  "project.thresholds",
			Reason: fmt.Sprintf("green_min (%.3f) must be above yellow_min (%.3f)", th.GreenMin, th.YellowMin),
		}
	}
	if th.GreenMin > 1 || th.YellowMin < 0 {
		return &ValidationError{Field: "project.thresholds", Reason: "thresholds must lie in [0,1]"}
	}

	if c.Embedding.Dimension <= 0 {
		return &ValidationError{Field: "embedding.dimension", Reason: "must be positive"}
	}
	if c.Batch.Concurrency <= 0 {
		return &ValidationError{Field: "batch.concurrency", Reason: "must be positive"}
	}
	if c.Batch.FailureBudget < 0 {
		return &ValidationError{Field: "batch.failure_budget", Reason: "must not be negative"}
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIFT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SIFT_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SIFT_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("SIFT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
