package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
telegram:
  gateway_url: http://localhost:8089/
ai:
  enabled: false
`

func TestLoadMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.GatewayURL != "http://localhost:8089" {
		t.Errorf("gateway url = %q, want trailing slash trimmed", cfg.Telegram.GatewayURL)
	}
	if cfg.Scrape.Window != 24*time.Hour {
		t.Errorf("window = %v, want 24h default", cfg.Scrape.Window)
	}
	if cfg.Scrape.FetchLimit != 100 {
		t.Errorf("fetch limit = %d, want 100 default", cfg.Scrape.FetchLimit)
	}
	if cfg.Scrape.RunTimeout != 1*time.Hour {
		t.Errorf("run timeout = %v, want 1h default", cfg.Scrape.RunTimeout)
	}
	if cfg.AI.BaseURL != defaultOpenAIBaseURL {
		t.Errorf("ai base url = %q, want default", cfg.AI.BaseURL)
	}
	if cfg.Store.Path != "jobgram.db" {
		t.Errorf("store path = %q, want jobgram.db default", cfg.Store.Path)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GATEWAY_TOKEN", "sekrit")

	cfg, err := Load(writeConfig(t, `
telegram:
  gateway_url: http://localhost:8089
  token: ${TEST_GATEWAY_TOKEN}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "sekrit" {
		t.Errorf("token = %q, want env-expanded value", cfg.Telegram.Token)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  gateway_url: http://localhost:8089
  timeout: 10s
scrape:
  window: 12h
  fetch_limit: 50
  min_delay: 2s
  run_timeout: 30m
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scrape.Window != 12*time.Hour {
		t.Errorf("window = %v, want 12h", cfg.Scrape.Window)
	}
	if cfg.Scrape.MinDelay != 2*time.Second {
		t.Errorf("min delay = %v, want 2s", cfg.Scrape.MinDelay)
	}
	if cfg.Telegram.Timeout != 10*time.Second {
		t.Errorf("telegram timeout = %v, want 10s", cfg.Telegram.Timeout)
	}
}

func TestLoadRejectsMissingGateway(t *testing.T) {
	_, err := Load(writeConfig(t, `
ai:
  enabled: false
`))
	if err == nil || !strings.Contains(err.Error(), "gateway_url") {
		t.Errorf("expected gateway_url error, got %v", err)
	}
}

func TestLoadRejectsAIWithoutKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  gateway_url: http://localhost:8089
ai:
  enabled: true
  model: gpt-4o-mini
`))
	if err == nil || !strings.Contains(err.Error(), "ai.api_key") {
		t.Errorf("expected ai.api_key error, got %v", err)
	}
}

func TestLoadRejectsBadSlackWebhook(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  gateway_url: http://localhost:8089
report:
  type: slack
  webhook_url: https://example.com/hook
`))
	if err == nil || !strings.Contains(err.Error(), "hooks.slack.com") {
		t.Errorf("expected webhook validation error, got %v", err)
	}
}
