package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/config"
)

func offlineConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Mode = "once"
	cfg.Mock.Enabled = true
	cfg.Postgres.Enabled = false
	cfg.Redis.Enabled = false
	cfg.Dedup.Backend = "memory"
	return &cfg
}

func TestOnceModeWithMockData(t *testing.T) {
	cfg := offlineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestWireWithoutBackends(t *testing.T) {
	cfg := offlineConfig()
	deps, cleanup, err := Wire(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if deps.SourceA.Name() != "mock" || deps.SourceB.Name() != "mock" {
		t.Errorf("sources = %s, %s", deps.SourceA.Name(), deps.SourceB.Name())
	}
	if deps.Sweeper == nil || deps.Suppressor == nil {
		t.Error("in-memory deduplication not wired")
	}
	if deps.Opportunities != nil || deps.SignalBus != nil || deps.Archiver != nil {
		t.Error("disabled backends were wired")
	}
	if len(deps.Health) != 0 {
		t.Errorf("health checks = %v", deps.Health)
	}
}

func TestScanConfigFrom(t *testing.T) {
	cfg := config.Defaults()
	cfg.Matcher.Categories = []string{"basketball"}
	cfg.Matcher.Qualifiers = []string{"los angeles"}
	cfg.Arbitrage.MinProfitThreshold = 1.5

	sc := ScanConfigFrom(&cfg)
	if sc.Thresholds.MinProfitPct != 1.5 || sc.Thresholds.MinValueEdge != cfg.Arbitrage.MinValueEdge {
		t.Errorf("thresholds = %+v", sc.Thresholds)
	}
	if len(sc.Matcher.Categories) != 1 || sc.Matcher.TimeWindow != cfg.Matcher.TimeWindow.Duration {
		t.Errorf("matcher = %+v", sc.Matcher)
	}
	if sc.Matcher.TranslatedTimeWindow != cfg.Matcher.TranslatedTimeWindow.Duration || sc.Matcher.TranslatedTimeWindow == 0 {
		t.Errorf("translated window = %v", sc.Matcher.TranslatedTimeWindow)
	}
	if got := sc.Matcher.Canon.Name("Los Angeles Lakers"); got != "lakers" {
		t.Errorf("canonical name = %q, want qualifier stripped", got)
	}
	if sc.Bankroll != cfg.Bankroll.Amount || sc.FetchAttempts != cfg.Arbitrage.FetchRetries {
		t.Errorf("scan config = %+v", sc)
	}
}
