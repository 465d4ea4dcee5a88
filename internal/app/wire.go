package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	s3blob "github.com/alanyoungcy/crossodds/internal/blob/s3"
	"github.com/alanyoungcy/crossodds/internal/cache/memory"
	"github.com/alanyoungcy/crossodds/internal/cache/redis"
	"github.com/alanyoungcy/crossodds/internal/config"
	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/metrics"
	"github.com/alanyoungcy/crossodds/internal/notify"
	"github.com/alanyoungcy/crossodds/internal/platform/cloudbet"
	"github.com/alanyoungcy/crossodds/internal/platform/kalshi"
	"github.com/alanyoungcy/crossodds/internal/platform/mock"
	"github.com/alanyoungcy/crossodds/internal/platform/polymarket"
	"github.com/alanyoungcy/crossodds/internal/server/handler"
	"github.com/alanyoungcy/crossodds/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the modes need. Optional
// backends that are disabled in the configuration stay nil. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Quote sources
	SourceA domain.QuoteSource
	SourceB domain.QuoteSource

	// Stores
	Opportunities domain.OpportunityStore
	Cycles        domain.CycleStore
	Audit         domain.AuditStore

	// Caches
	Suppressor  domain.DuplicateSuppressor
	Sweeper     *memory.Suppressor // set with in-memory deduplication
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	Status      domain.StatusCache

	// Blob storage
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics

	// Health lists the backends probed by /api/health.
	Health map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(stage string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", stage, err)
	}

	deps := &Dependencies{Health: map[string]handler.Pinger{}}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail("postgres migrations", err)
			}
		}

		pool := pgClient.Pool()
		deps.Opportunities = postgres.NewOpportunityStore(pool)
		deps.Cycles = postgres.NewCycleStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pgClient
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
		deps.Status = redis.NewStatusCache(redisClient)
		if cfg.Dedup.Backend == "redis" {
			deps.Suppressor = redis.NewSuppressor(redisClient, cfg.Dedup.Retention.Duration)
		}
		deps.Health["redis"] = redisClient
	}
	if deps.Suppressor == nil {
		mem := memory.NewSuppressor(cfg.Dedup.Retention.Duration)
		deps.Suppressor = mem
		deps.Sweeper = mem
	}

	// --- S3 archive ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}

		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Health["s3"] = handler.PingFunc(s3Client.Health)
		if deps.Opportunities != nil {
			deps.Archiver = s3blob.NewArchiver(s3blob.ArchiverConfig{
				Writer: s3blob.NewWriter(s3Client),
				Source: deps.Opportunities,
				Audit:  deps.Audit,
				Prefix: cfg.Archive.Prefix,
				Prune:  cfg.Archive.Prune,
			})
		}
	}

	// --- Quote sources ---
	var err error
	deps.SourceA, deps.SourceB, err = wireSources(cfg, deps.RateLimiter, logger)
	if err != nil {
		return fail("sources", err)
	}

	// --- Notifications ---
	notifier, err := wireNotifier(cfg, logger)
	if err != nil {
		return fail("notify", err)
	}
	deps.Notifier = notifier

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.New(reg)

	return deps, cleanup, nil
}

// wireSources builds the two quote sources. Mock mode replaces both.
func wireSources(cfg *config.Config, limiter domain.RateLimiter, logger *slog.Logger) (domain.QuoteSource, domain.QuoteSource, error) {
	if cfg.Mock.Enabled {
		logger.Warn("mock data enabled, live exchanges are not queried", slog.String("dir", cfg.Mock.Dir))
		return mock.New(domain.ExchangeA, cfg.Mock.Dir), mock.New(domain.ExchangeB, cfg.Mock.Dir), nil
	}

	var sourceA domain.QuoteSource
	a := cfg.ExchangeA
	switch a.Provider {
	case "kalshi":
		client := kalshi.NewClient(kalshi.Config{
			BaseURL:        a.KalshiBaseURL,
			APIKeyID:       a.KalshiAPIKey,
			PageSize:       a.PageSize,
			MaxPages:       a.MaxPages,
			Timeout:        a.Timeout.Duration,
			Limiter:        limiter,
			RequestsPerSec: a.RequestsPerSecond,
		}, logger)
		if a.KalshiRSAKeyPath != "" {
			pem, err := os.ReadFile(a.KalshiRSAKeyPath)
			if err != nil {
				return nil, nil, fmt.Errorf("read kalshi key: %w", err)
			}
			if err := client.SetRSAPrivateKey(pem); err != nil {
				return nil, nil, err
			}
		}
		sourceA = client
	default:
		sourceA = polymarket.NewGammaClient(polymarket.GammaConfig{
			BaseURL:        a.GammaHost,
			PageSize:       a.PageSize,
			MaxPages:       a.MaxPages,
			TagSlug:        a.TagSlug,
			Timeout:        a.Timeout.Duration,
			Limiter:        limiter,
			RequestsPerSec: a.RequestsPerSecond,
		}, logger)
	}

	b := cfg.ExchangeB
	sourceB := cloudbet.NewClient(cloudbet.Config{
		BaseURL:        b.BaseURL,
		APIKey:         b.APIKey,
		Sports:         b.Sports,
		MarketSuffixes: b.MarketSuffixes,
		Lookahead:      b.Lookahead.Duration,
		Timeout:        b.Timeout.Duration,
		Limiter:        limiter,
		RequestsPerSec: b.RequestsPerSecond,
	}, logger)

	return sourceA, sourceB, nil
}

func wireNotifier(cfg *config.Config, logger *slog.Logger) (*notify.Notifier, error) {
	n := cfg.Notify

	var senders []notify.Sender
	if n.TelegramToken != "" && n.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(n.TelegramToken, n.TelegramChatID, n.SendRetries))
	}
	if n.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(n.DiscordWebhookURL))
	}

	loc := time.UTC
	if tz := n.QuietHours.Timezone; tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("quiet hours timezone %q: %w", tz, err)
		}
	}
	quiet := notify.QuietHours{
		Enabled:   n.QuietHours.Enabled,
		StartHour: n.QuietHours.StartHour,
		EndHour:   n.QuietHours.EndHour,
		Location:  loc,
	}
	format := notify.Formatter{Names: map[domain.Platform]string{
		domain.ExchangeA: cfg.ExchangeA.DisplayName,
		domain.ExchangeB: cfg.ExchangeB.DisplayName,
	}}

	return notify.NewNotifier(senders, n.Events, quiet, format, logger), nil
}
