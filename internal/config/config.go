package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the jobgram pipeline.
type Config struct {
	Telegram   TelegramConfig
	AI         AIConfig
	Store      StoreConfig
	Scrape     ScrapeConfig
	Report     ReportConfig
	Server     ServerConfig
	Schedule   ScheduleConfig
	Progress   ProgressConfig
	Channels   []ChannelConfig
	Categories []CategoryConfig
}

// TelegramConfig points at the pre-authenticated tdlib gateway.
type TelegramConfig struct {
	GatewayURL string        // base URL of the gateway, e.g. http://localhost:8089
	Token      string        // bearer token for the gateway, expanded from env
	Timeout    time.Duration // per-request timeout
}

// AIConfig controls the extraction model.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

// StoreConfig locates the sqlite database.
type StoreConfig struct {
	Path string // file path, or ":memory:"
}

// ScrapeConfig bounds one run.
type ScrapeConfig struct {
	Window     time.Duration // only messages newer than now-window are processed
	FetchLimit int           // count-based cursor: most recent N messages per channel
	MinDelay   time.Duration // minimum gap between calls to the same backend
	RunTimeout time.Duration // upper bound on one full run
}

// ReportConfig controls where the run summary goes.
type ReportConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// ServerConfig is the on-demand trigger surface.
type ServerConfig struct {
	Addr  string `yaml:"addr"`  // listen address, e.g. ":8080"
	Token string `yaml:"token"` // bearer token required on /api/v1 routes
}

// ScheduleConfig is the daily trigger. Empty spec disables the cron.
type ScheduleConfig struct {
	Cron string `yaml:"cron"` // e.g. "0 9 * * *"
}

// ProgressConfig optionally mirrors live run progress into Redis.
type ProgressConfig struct {
	RedisURL string `yaml:"redis_url"` // empty disables the mirror
}

// ChannelConfig describes one channel for `channels sync`.
type ChannelConfig struct {
	Username        string `yaml:"username"`
	Title           string `yaml:"title"`
	ImageURL        string `yaml:"image_url"`
	Category        string `yaml:"category"`
	Active          bool   `yaml:"active"`
	ScrapingEnabled bool   `yaml:"scraping_enabled"`
}

// CategoryConfig describes one category-tree node for `channels sync`.
type CategoryConfig struct {
	Name       string   `yaml:"name"`
	Path       string   `yaml:"path"`
	ParentPath string   `yaml:"parent_path"`
	Tags       []string `yaml:"tags"`
	Keywords   []string `yaml:"keywords"`
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Telegram   rawTelegramConfig `yaml:"telegram"`
	AI         rawAIConfig       `yaml:"ai"`
	Store      StoreConfig       `yaml:"store"`
	Scrape     rawScrapeConfig   `yaml:"scrape"`
	Report     ReportConfig      `yaml:"report"`
	Server     ServerConfig      `yaml:"server"`
	Schedule   ScheduleConfig    `yaml:"schedule"`
	Progress   ProgressConfig    `yaml:"progress"`
	Channels   []ChannelConfig   `yaml:"channels"`
	Categories []CategoryConfig  `yaml:"categories"`
}

type rawTelegramConfig struct {
	GatewayURL string `yaml:"gateway_url"`
	Token      string `yaml:"token"`
	Timeout    string `yaml:"timeout"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawScrapeConfig struct {
	Window     string `yaml:"window"`
	FetchLimit int    `yaml:"fetch_limit"`
	MinDelay   string `yaml:"min_delay"`
	RunTimeout string `yaml:"run_timeout"`
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (tokens and API keys live in env).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	tgTimeout, err := parseDuration("telegram.timeout", raw.Telegram.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := parseDuration("ai.timeout", raw.AI.Timeout, 45*time.Second)
	if err != nil {
		return nil, err
	}
	window, err := parseDuration("scrape.window", raw.Scrape.Window, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("scrape.min_delay", raw.Scrape.MinDelay, 1*time.Second)
	if err != nil {
		return nil, err
	}
	runTimeout, err := parseDuration("scrape.run_timeout", raw.Scrape.RunTimeout, 1*time.Hour)
	if err != nil {
		return nil, err
	}

	fetchLimit := raw.Scrape.FetchLimit
	if fetchLimit == 0 {
		fetchLimit = 100
	}

	aiBaseURL := raw.AI.BaseURL
	if aiBaseURL == "" {
		aiBaseURL = defaultOpenAIBaseURL
	}

	storePath := raw.Store.Path
	if storePath == "" {
		storePath = "jobgram.db"
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			GatewayURL: strings.TrimRight(raw.Telegram.GatewayURL, "/"),
			Token:      raw.Telegram.Token,
			Timeout:    tgTimeout,
		},
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: aiBaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
		Store: StoreConfig{Path: storePath},
		Scrape: ScrapeConfig{
			Window:     window,
			FetchLimit: fetchLimit,
			MinDelay:   minDelay,
			RunTimeout: runTimeout,
		},
		Report:     raw.Report,
		Server:     raw.Server,
		Schedule:   raw.Schedule,
		Progress:   raw.Progress,
		Channels:   raw.Channels,
		Categories: raw.Categories,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Telegram.GatewayURL == "" {
		return fmt.Errorf("telegram.gateway_url is required")
	}

	if cfg.Scrape.Window <= 0 {
		return fmt.Errorf("scrape.window must be positive, got %v", cfg.Scrape.Window)
	}
	if cfg.Scrape.FetchLimit <= 0 {
		return fmt.Errorf("scrape.fetch_limit must be positive, got %d", cfg.Scrape.FetchLimit)
	}

	if cfg.Report.Type == "slack" {
		if cfg.Report.WebhookURL == "" {
			return fmt.Errorf("report.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Report.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("report.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	for i, ch := range cfg.Channels {
		if strings.TrimSpace(ch.Username) == "" {
			return fmt.Errorf("channels[%d].username is required", i)
		}
	}
	for i, cat := range cfg.Categories {
		if cat.Name == "" || cat.Path == "" {
			return fmt.Errorf("categories[%d] needs both name and path", i)
		}
	}

	return nil
}
