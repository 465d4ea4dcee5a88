package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSODDS_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSODDS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange A ──
	setStr(&cfg.ExchangeA.Provider, "CROSSODDS_EXCHANGE_A_PROVIDER")
	setStr(&cfg.ExchangeA.GammaHost, "CROSSODDS_EXCHANGE_A_GAMMA_HOST")
	setStr(&cfg.ExchangeA.KalshiBaseURL, "CROSSODDS_EXCHANGE_A_KALSHI_BASE_URL")
	setStr(&cfg.ExchangeA.KalshiAPIKey, "CROSSODDS_EXCHANGE_A_KALSHI_API_KEY")
	setStr(&cfg.ExchangeA.KalshiRSAKeyPath, "CROSSODDS_EXCHANGE_A_KALSHI_RSA_PRIVATE_KEY_PATH")

	// ── Exchange B ──
	setStr(&cfg.ExchangeB.BaseURL, "CROSSODDS_EXCHANGE_B_BASE_URL")
	setStr(&cfg.ExchangeB.APIKey, "CROSSODDS_EXCHANGE_B_API_KEY")
	setStr(&cfg.ExchangeB.APIKey, "CLOUDBET_API_KEY") // compatibility alias
	setStringSlice(&cfg.ExchangeB.Sports, "CROSSODDS_EXCHANGE_B_SPORTS")
	setDuration(&cfg.ExchangeB.Lookahead, "CROSSODDS_EXCHANGE_B_LOOKAHEAD")

	// ── Matcher ──
	setFloat64(&cfg.Matcher.SimilarityThreshold, "CROSSODDS_MATCHER_SIMILARITY_THRESHOLD")
	setDuration(&cfg.Matcher.TimeWindow, "CROSSODDS_MATCHER_TIME_WINDOW")
	setDuration(&cfg.Matcher.TranslatedTimeWindow, "CROSSODDS_MATCHER_TRANSLATED_TIME_WINDOW")
	setStringSlice(&cfg.Matcher.Categories, "CROSSODDS_MATCHER_CATEGORIES")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinProfitThreshold, "CROSSODDS_ARBITRAGE_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Arbitrage.MinValueEdge, "CROSSODDS_ARBITRAGE_MIN_VALUE_EDGE")
	setBool(&cfg.Arbitrage.SuppressValueEdgeOnArb, "CROSSODDS_ARBITRAGE_SUPPRESS_VALUE_EDGE_ON_ARB")
	setDuration(&cfg.Arbitrage.PollingInterval, "CROSSODDS_ARBITRAGE_POLLING_INTERVAL")
	setInt(&cfg.Arbitrage.FetchRetries, "CROSSODDS_ARBITRAGE_FETCH_RETRIES")

	// ── Bankroll ──
	setFloat64(&cfg.Bankroll.Amount, "CROSSODDS_BANKROLL_AMOUNT")
	setFloat64(&cfg.Bankroll.KellyFraction, "CROSSODDS_BANKROLL_KELLY_FRACTION")

	// ── Dedup ──
	setStr(&cfg.Dedup.Backend, "CROSSODDS_DEDUP_BACKEND")
	setDuration(&cfg.Dedup.Retention, "CROSSODDS_DEDUP_RETENTION")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CROSSODDS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CROSSODDS_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "CROSSODDS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSODDS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSODDS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSODDS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSODDS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSODDS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSODDS_POSTGRES_POOL_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROSSODDS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CROSSODDS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CROSSODDS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSODDS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSODDS_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "CROSSODDS_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "CROSSODDS_REDIS_KEY_PREFIX")

	// ── S3 / archive ──
	setStr(&cfg.S3.Endpoint, "CROSSODDS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSODDS_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSODDS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSODDS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSODDS_S3_SECRET_KEY")
	setBool(&cfg.Archive.Enabled, "CROSSODDS_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "CROSSODDS_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "CROSSODDS_ARCHIVE_CRON")

	// ── Server ──
	setInt(&cfg.Server.Port, "CROSSODDS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CROSSODDS_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.CORSMaxAge, "CROSSODDS_SERVER_CORS_MAX_AGE")
	setStr(&cfg.Server.APIKey, "CROSSODDS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CROSSODDS_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSODDS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN") // compatibility alias
	setStr(&cfg.Notify.TelegramChatID, "CROSSODDS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID") // compatibility alias
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSODDS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSODDS_NOTIFY_EVENTS")
	setBool(&cfg.Notify.QuietHours.Enabled, "CROSSODDS_NOTIFY_QUIET_HOURS_ENABLED")

	// ── Mock ──
	setBool(&cfg.Mock.Enabled, "CROSSODDS_MOCK_ENABLED")
	setStr(&cfg.Mock.Dir, "CROSSODDS_MOCK_DIR")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSODDS_MODE")
	setStr(&cfg.LogLevel, "CROSSODDS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
