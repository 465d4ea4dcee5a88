package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidateWithMock(t *testing.T) {
	cfg := Defaults()
	cfg.Mock.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with mock data should validate: %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Bankroll.KellyFraction = 1.5
	cfg.Dedup.Backend = "memcached"
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		`unknown mode "trade"`,
		"exchange_b: api_key is required",
		"bankroll: kelly_fraction",
		`dedup: unknown backend "memcached"`,
		"telegram_token and telegram_chat_id",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in:\n%v", want, err)
		}
	}
}

func TestValidateModeDependencies(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"server needs postgres", func(c *Config) { c.Mode = "server"; c.Postgres.Enabled = false }, "postgres: must be enabled"},
		{"once runs without postgres", func(c *Config) { c.Mode = "once"; c.Postgres.Enabled = false }, ""},
		{"redis dedup needs redis", func(c *Config) { c.Redis.Enabled = false }, "dedup: backend redis requires redis.enabled"},
		{"memory dedup without redis", func(c *Config) { c.Redis.Enabled = false; c.Dedup.Backend = "memory" }, ""},
		{"archive cron fields", func(c *Config) { c.Archive.Enabled = true; c.Archive.Cron = "daily" }, "archive: cron must have 5 fields"},
		{"quiet hours range", func(c *Config) { c.Notify.QuietHours.Enabled = true; c.Notify.QuietHours.EndHour = 24 }, "quiet_hours start_hour and end_hour"},
		{"value edge must be positive", func(c *Config) { c.Arbitrage.MinValueEdge = 0 }, "arbitrage: min_value_edge must be within (0,1)"},
		{"negative translated window", func(c *Config) { c.Matcher.TranslatedTimeWindow.Duration = -time.Hour }, "translated_time_window must not be negative"},
		{"kalshi provider", func(c *Config) { c.Mock.Enabled = false; c.ExchangeB.APIKey = "k"; c.ExchangeA.Provider = "kalshi" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Mock.Enabled = true
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "once"

[matcher]
similarity_threshold = 80
time_window = "12h"

[arbitrage]
min_profit_threshold = 1.5
polling_interval = "30s"

[exchange_b]
sports = ["basketball"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CROSSODDS_BANKROLL_AMOUNT", "2500")
	t.Setenv("CROSSODDS_EXCHANGE_B_SPORTS", "soccer, tennis")
	t.Setenv("CROSSODDS_DEDUP_RETENTION", "90m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "once" || cfg.Matcher.SimilarityThreshold != 80 || cfg.Arbitrage.MinProfitThreshold != 1.5 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Matcher.TimeWindow.Duration != 12*time.Hour || cfg.Arbitrage.PollingInterval.Duration != 30*time.Second {
		t.Errorf("durations = %v / %v", cfg.Matcher.TimeWindow, cfg.Arbitrage.PollingInterval)
	}
	if cfg.Matcher.OutcomeThreshold != 85 {
		t.Errorf("unset field lost its default: %v", cfg.Matcher.OutcomeThreshold)
	}
	if cfg.Bankroll.Amount != 2500 || cfg.Dedup.Retention.Duration != 90*time.Minute {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Bankroll, cfg.Dedup)
	}
	if got := cfg.ExchangeB.Sports; len(got) != 2 || got[0] != "soccer" || got[1] != "tennis" {
		t.Errorf("sports = %v", got)
	}
}

func TestExampleConfigValidates(t *testing.T) {
	t.Setenv("CROSSODDS_EXCHANGE_B_API_KEY", "example")

	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Matcher.TranslatedTimeWindow.Duration != 90*24*time.Hour || cfg.Server.CORSMaxAge.Duration != 10*time.Minute {
		t.Errorf("matcher/server = %+v %+v", cfg.Matcher, cfg.Server)
	}
	if cfg.Arbitrage.CycleTimeout.Duration != 2*time.Minute || cfg.Notify.QuietHours.Timezone != "UTC" {
		t.Errorf("example values not decoded: %+v %+v", cfg.Arbitrage, cfg.Notify.QuietHours)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.ExchangeB.APIKey = "cb-secret"
	cfg.Postgres.Password = "pg-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	out := RedactedConfig(&cfg)
	if out.ExchangeB.APIKey != redacted || out.Postgres.Password != redacted || out.Notify.TelegramToken != redacted {
		t.Errorf("secrets not redacted: %+v", out)
	}
	if out.Redis.Password != "" {
		t.Error("empty secret should stay empty")
	}
	out.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] == "changed" {
		t.Error("redacted copy shares slices with the original")
	}
	if cfg.ExchangeB.APIKey != "cb-secret" {
		t.Error("original mutated")
	}
}
