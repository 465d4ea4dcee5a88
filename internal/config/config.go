// Package config defines the top-level configuration for crossodds and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSODDS_* environment variables.
type Config struct {
	ExchangeA ExchangeAConfig `toml:"exchange_a"`
	ExchangeB ExchangeBConfig `toml:"exchange_b"`
	Matcher   MatcherConfig   `toml:"matcher"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Bankroll  BankrollConfig  `toml:"bankroll"`
	Dedup     DedupConfig     `toml:"dedup"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mock      MockConfig      `toml:"mock"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ExchangeAConfig selects and configures the prediction-exchange provider.
type ExchangeAConfig struct {
	Provider string `toml:"provider"` // "polymarket" or "kalshi"
	// DisplayName is used in alerts; defaults to the provider name.
	DisplayName       string   `toml:"display_name"`
	GammaHost         string   `toml:"gamma_host"`
	TagSlug           string   `toml:"tag_slug"`
	KalshiBaseURL     string   `toml:"kalshi_base_url"`
	KalshiAPIKey      string   `toml:"kalshi_api_key"`
	KalshiRSAKeyPath  string   `toml:"kalshi_rsa_private_key_path"`
	PageSize          int      `toml:"page_size"`
	MaxPages          int      `toml:"max_pages"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond int      `toml:"requests_per_second"`
}

// ExchangeBConfig configures the Cloudbet sportsbook feed.
type ExchangeBConfig struct {
	DisplayName       string   `toml:"display_name"`
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Sports            []string `toml:"sports"`
	MarketSuffixes    []string `toml:"market_suffixes"`
	Lookahead         duration `toml:"lookahead"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond int      `toml:"requests_per_second"`
}

// MatcherConfig holds event-matching thresholds and normalization lists.
type MatcherConfig struct {
	SimilarityThreshold  float64  `toml:"similarity_threshold"`
	TranslatedThreshold  float64  `toml:"translated_threshold"`
	OutcomeThreshold     float64  `toml:"outcome_threshold"`
	TitleWeight          float64  `toml:"title_weight"`
	ParticipantWeight    float64  `toml:"participant_weight"`
	TimeWindow           duration `toml:"time_window"`
	TranslatedTimeWindow duration `toml:"translated_time_window"` // yes/no questions vs named selections
	MaxCandidates        int      `toml:"max_candidates"`
	Categories           []string `toml:"categories"`
	RequireParticipants  bool     `toml:"require_participants"`
	Qualifiers           []string `toml:"qualifiers"`
	StripPrefixes        []string `toml:"strip_prefixes"`
}

// ArbitrageConfig holds detection thresholds and the polling cadence.
type ArbitrageConfig struct {
	// MinProfitThreshold is the minimum arbitrage margin in percent.
	MinProfitThreshold     float64  `toml:"min_profit_threshold"`
	MinValueEdge           float64  `toml:"min_value_edge"`
	SuppressValueEdgeOnArb bool     `toml:"suppress_value_edge_on_arb"`
	PollingInterval        duration `toml:"polling_interval"`
	FetchRetries           int      `toml:"fetch_retries"`
	FetchBackoff           duration `toml:"fetch_backoff"`
	CycleTimeout           duration `toml:"cycle_timeout"`
}

// BankrollConfig sizes arbitrage allocations.
type BankrollConfig struct {
	Amount        float64 `toml:"amount"`
	KellyFraction float64 `toml:"kelly_fraction"`
}

// DedupConfig selects the duplicate-suppression backend.
type DedupConfig struct {
	Backend   string   `toml:"backend"` // "redis" or "memory"
	Retention duration `toml:"retention"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	KeyPrefix    string `toml:"key_prefix"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig schedules the export of old opportunities to S3.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
	Prefix        string `toml:"prefix"`
	Prune         bool   `toml:"prune"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	CORSMaxAge  duration `toml:"cors_max_age"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per minute per client; zero disables it.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string           `toml:"telegram_token"`
	TelegramChatID    string           `toml:"telegram_chat_id"`
	DiscordWebhookURL string           `toml:"discord_webhook_url"`
	Events            []string         `toml:"events"`
	SendRetries       int              `toml:"send_retries"`
	QuietHours        QuietHoursConfig `toml:"quiet_hours"`
}

// QuietHoursConfig is a daily window, in Timezone, without alerts.
type QuietHoursConfig struct {
	Enabled   bool   `toml:"enabled"`
	StartHour int    `toml:"start_hour"`
	EndHour   int    `toml:"end_hour"`
	Timezone  string `toml:"timezone"`
}

// MockConfig replaces both platforms with JSON fixtures.
type MockConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		ExchangeA: ExchangeAConfig{
			Provider:          "polymarket",
			GammaHost:         "https://gamma-api.polymarket.com",
			KalshiBaseURL:     "https://api.elections.kalshi.com/trade-api/v2",
			PageSize:          100,
			MaxPages:          20,
			Timeout:           duration{10 * time.Second},
			RequestsPerSecond: 5,
		},
		ExchangeB: ExchangeBConfig{
			DisplayName:       "Cloudbet",
			BaseURL:           "https://sports-api.cloudbet.com/pub",
			MarketSuffixes:    []string{"moneyline", "match_odds", "winner"},
			Lookahead:         duration{7 * 24 * time.Hour},
			Timeout:           duration{10 * time.Second},
			RequestsPerSecond: 10,
		},
		Matcher: MatcherConfig{
			SimilarityThreshold:  85,
			TranslatedThreshold:  55,
			OutcomeThreshold:     85,
			TitleWeight:          0.4,
			ParticipantWeight:    0.6,
			TimeWindow:           duration{48 * time.Hour},
			TranslatedTimeWindow: duration{90 * 24 * time.Hour},
			MaxCandidates:        500,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitThreshold:     0.5,
			MinValueEdge:           0.05,
			SuppressValueEdgeOnArb: true,
			PollingInterval:        duration{60 * time.Second},
			FetchRetries:           3,
			FetchBackoff:           duration{2 * time.Second},
			CycleTimeout:           duration{2 * time.Minute},
		},
		Bankroll: BankrollConfig{
			Amount:        1000,
			KellyFraction: 0.25,
		},
		Dedup: DedupConfig{
			Backend:   "redis",
			Retention: duration{6 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      true,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			KeyPrefix:    "crossodds:",
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossodds-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Cron:          "0 3 * * *",
			Prefix:        "opportunities",
			Prune:         true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			CORSMaxAge:  duration{10 * time.Minute},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			Events:      []string{"arbitrage", "cycle_failed"},
			SendRetries: 3,
			QuietHours: QuietHoursConfig{
				StartHour: 23,
				EndHour:   7,
				Timezone:  "UTC",
			},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"server": true,
	"full":   true,
	"once":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, server, full, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	scans := mode != "server"

	// Sources are irrelevant when fixtures replace them.
	if scans && !c.Mock.Enabled {
		switch c.ExchangeA.Provider {
		case "polymarket":
			if c.ExchangeA.GammaHost == "" {
				errs = append(errs, "exchange_a: gamma_host must not be empty")
			}
		case "kalshi":
			if c.ExchangeA.KalshiBaseURL == "" {
				errs = append(errs, "exchange_a: kalshi_base_url must not be empty")
			}
		default:
			errs = append(errs, fmt.Sprintf("exchange_a: unknown provider %q (valid: polymarket, kalshi)", c.ExchangeA.Provider))
		}
		if c.ExchangeB.APIKey == "" {
			errs = append(errs, "exchange_b: api_key is required")
		}
		if c.ExchangeB.BaseURL == "" {
			errs = append(errs, "exchange_b: base_url must not be empty")
		}
	}

	m := c.Matcher
	for _, th := range []struct {
		name string
		v    float64
	}{
		{"similarity_threshold", m.SimilarityThreshold},
		{"translated_threshold", m.TranslatedThreshold},
		{"outcome_threshold", m.OutcomeThreshold},
	} {
		if th.v < 0 || th.v > 100 {
			errs = append(errs, fmt.Sprintf("matcher: %s must be within 0-100, got %v", th.name, th.v))
		}
	}
	if m.TitleWeight < 0 || m.ParticipantWeight < 0 || m.TitleWeight+m.ParticipantWeight <= 0 {
		errs = append(errs, "matcher: title_weight and participant_weight must be >= 0 and not both zero")
	}
	if m.TimeWindow.Duration < 0 || m.TranslatedTimeWindow.Duration < 0 {
		errs = append(errs, "matcher: time_window and translated_time_window must not be negative")
	}

	a := c.Arbitrage
	if a.MinProfitThreshold < 0 {
		errs = append(errs, "arbitrage: min_profit_threshold must be >= 0")
	}
	if a.MinValueEdge <= 0 || a.MinValueEdge >= 1 {
		errs = append(errs, "arbitrage: min_value_edge must be within (0,1)")
	}
	if scans && mode != "once" && a.PollingInterval.Duration <= 0 {
		errs = append(errs, "arbitrage: polling_interval must be > 0")
	}
	if a.FetchRetries < 0 {
		errs = append(errs, "arbitrage: fetch_retries must be >= 0")
	}

	if c.Bankroll.Amount <= 0 {
		errs = append(errs, "bankroll: amount must be > 0")
	}
	if c.Bankroll.KellyFraction <= 0 || c.Bankroll.KellyFraction > 1 {
		errs = append(errs, "bankroll: kelly_fraction must be within (0,1]")
	}

	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, "dedup: backend redis requires redis.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("dedup: unknown backend %q (valid: redis, memory)", c.Dedup.Backend))
	}
	if c.Dedup.Retention.Duration <= 0 {
		errs = append(errs, "dedup: retention must be > 0")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be within 0..pool_max_conns")
		}
	} else if mode == "server" || mode == "full" {
		errs = append(errs, "postgres: must be enabled for mode "+mode)
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if len(strings.Fields(c.Archive.Cron)) != 5 {
			errs = append(errs, fmt.Sprintf("archive: cron must have 5 fields, got %q", c.Archive.Cron))
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres.enabled")
		}
	}

	if mode == "server" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	n := c.Notify
	if (n.TelegramToken == "") != (n.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	q := n.QuietHours
	if q.Enabled {
		if q.StartHour < 0 || q.StartHour > 23 || q.EndHour < 0 || q.EndHour > 23 {
			errs = append(errs, "notify: quiet_hours start_hour and end_hour must be within 0-23")
		}
		if _, err := time.LoadLocation(q.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("notify: quiet_hours timezone %q: %v", q.Timezone, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
