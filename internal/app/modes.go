package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossodds/internal/config"
	"github.com/alanyoungcy/crossodds/internal/detector"
	"github.com/alanyoungcy/crossodds/internal/matcher"
	"github.com/alanyoungcy/crossodds/internal/normalize"
	"github.com/alanyoungcy/crossodds/internal/pipeline"
	"github.com/alanyoungcy/crossodds/internal/server"
	"github.com/alanyoungcy/crossodds/internal/server/handler"
	"github.com/alanyoungcy/crossodds/internal/server/ws"
)

// ScanMode runs the polling loop without the dashboard.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering scan mode")

	o := pipeline.NewOrchestrator(a.newScanner(deps), nil, sweeper(deps), a.cfg.Arbitrage.PollingInterval.Duration, "", a.base)
	return o.Run(ctx)
}

// ServerMode runs only the dashboard API, reading what a scanner elsewhere
// persisted and published.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the scanner, the archiver and the dashboard in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering full mode")

	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.base)
	}
	o := pipeline.NewOrchestrator(a.newScanner(deps), archiver, sweeper(deps),
		a.cfg.Arbitrage.PollingInterval.Duration, a.cfg.Archive.Cron, a.base)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.Run(ctx) })
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// OnceMode runs a single cycle and returns its error, for cron jobs and
// smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering once mode")

	report, err := a.newScanner(deps).RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("app: cycle %s: %w", report.ID, err)
	}
	a.logger.InfoContext(ctx, "single cycle finished",
		slog.String("status", string(report.Status)),
		slog.Int("opportunities", report.Opportunities),
	)
	return nil
}

func (a *App) newScanner(deps *Dependencies) *pipeline.Scanner {
	sinks := pipeline.Sinks{
		Opportunities: deps.Opportunities,
		Cycles:        deps.Cycles,
		Audit:         deps.Audit,
		Status:        deps.Status,
		Bus:           deps.SignalBus,
		Locks:         deps.LockManager,
		Alerts:        deps.Notifier,
		Metrics:       deps.Metrics,
	}
	return pipeline.NewScanner(
		deps.SourceA, deps.SourceB,
		matcher.New(matcher.TokenSortRatio{}, a.base),
		detector.New(deps.Suppressor, a.base),
		sinks,
		ScanConfigFrom(a.cfg),
		a.base,
	)
}

// ScanConfigFrom translates the loaded configuration into the immutable
// per-cycle parameters.
func ScanConfigFrom(cfg *config.Config) pipeline.ScanConfig {
	m := matcher.DefaultConfig()
	m.SimilarityThreshold = cfg.Matcher.SimilarityThreshold
	m.TranslatedThreshold = cfg.Matcher.TranslatedThreshold
	m.OutcomeThreshold = cfg.Matcher.OutcomeThreshold
	m.TitleWeight = cfg.Matcher.TitleWeight
	m.ParticipantWeight = cfg.Matcher.ParticipantWeight
	m.TimeWindow = cfg.Matcher.TimeWindow.Duration
	m.TranslatedTimeWindow = cfg.Matcher.TranslatedTimeWindow.Duration
	m.MaxCandidates = cfg.Matcher.MaxCandidates
	m.Categories = cfg.Matcher.Categories
	m.RequireParticipants = cfg.Matcher.RequireParticipants

	prefixes, qualifiers := normalize.DefaultPrefixes, normalize.DefaultQualifiers
	if len(cfg.Matcher.StripPrefixes) > 0 {
		prefixes = cfg.Matcher.StripPrefixes
	}
	if len(cfg.Matcher.Qualifiers) > 0 {
		qualifiers = cfg.Matcher.Qualifiers
	}
	m.Canon = normalize.NewCanonicalizer(prefixes, qualifiers, normalize.DefaultTitleNoise)

	arb := cfg.Arbitrage
	return pipeline.ScanConfig{
		Matcher: m,
		Thresholds: detector.Thresholds{
			MinProfitPct:           arb.MinProfitThreshold,
			MinValueEdge:           arb.MinValueEdge,
			SuppressValueEdgeOnArb: arb.SuppressValueEdgeOnArb,
		},
		Bankroll:      cfg.Bankroll.Amount,
		KellyFraction: cfg.Bankroll.KellyFraction,
		FetchAttempts: arb.FetchRetries,
		FetchBackoff:  arb.FetchBackoff.Duration,
		FetchTimeout:  arb.CycleTimeout.Duration,
	}
}

func sweeper(deps *Dependencies) pipeline.Sweeper {
	if deps.Sweeper == nil {
		return nil
	}
	return deps.Sweeper
}

// startHTTPServer registers the dashboard server and its shutdown on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hlog := a.base.With(slog.String("component", "handler"))
	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.Health, hlog),
		Status:        handler.NewStatusHandler(a.cfg.Mode, deps.Status, hlog),
		Opportunities: handler.NewOpportunityHandler(deps.Opportunities, hlog),
		Cycles:        handler.NewCycleHandler(deps.Cycles, hlog),
		Metrics:       deps.Metrics.Handler(),
	}
	if deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.BlobReader, a.cfg.Archive.Prefix, hlog)
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.cfg.Mode, a.base)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("ws hub: %w", err)
			}
			return nil
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		CORSMaxAge:  a.cfg.Server.CORSMaxAge.Duration,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, deps.RateLimiter, a.base)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
