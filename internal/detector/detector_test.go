package detector_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/detector"
	"github.com/alanyoungcy/crossodds/internal/domain"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func comparable(kind domain.ComparisonKind, pa, pb float64) domain.Comparable {
	return domain.Comparable{
		Kind:         kind,
		A:            domain.Leg{Platform: domain.ExchangeA, EventKey: "a1", Outcome: "Lakers", Probability: pa},
		B:            domain.Leg{Platform: domain.ExchangeB, EventKey: "b1", Outcome: "Golden State Warriors", Probability: pb},
		Participants: []string{"lakers", "warriors"},
		Basis:        domain.MatchParticipantSet,
		Similarity:   100,
	}
}

func TestEvaluateArbitrage(t *testing.T) {
	tests := []struct {
		name    string
		pa, pb  float64
		minPct  float64
		wantArb bool
		wantPct float64
	}{
		{name: "complementary legs under one", pa: 0.50, pb: 1 / 2.2, minPct: 0.5, wantArb: true, wantPct: 4.7619},
		{name: "total exactly one", pa: 0.50, pb: 0.50, minPct: 0},
		{name: "total above one", pa: 0.55, pb: 0.50, minPct: 0},
		{name: "margin below threshold", pa: 0.50, pb: 0.497, minPct: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := detector.Thresholds{MinProfitPct: tt.minPct, MinValueEdge: 1}
			opps := detector.Evaluate([]domain.Comparable{comparable(domain.OpposingOutcome, tt.pa, tt.pb)}, th, t0)
			if !tt.wantArb {
				if len(opps) != 0 {
					t.Fatalf("expected no opportunity, got %+v", opps)
				}
				return
			}
			if len(opps) != 1 {
				t.Fatalf("got %d opportunities, want 1", len(opps))
			}
			o := opps[0]
			if o.Kind != domain.Arbitrage {
				t.Errorf("kind = %s", o.Kind)
			}
			if math.Abs(o.MarginPct-tt.wantPct) > 1e-3 {
				t.Errorf("margin pct = %v, want %v", o.MarginPct, tt.wantPct)
			}
			if math.Abs(o.Margin-(1-tt.pa-tt.pb)) > 1e-12 {
				t.Errorf("margin = %v", o.Margin)
			}
		})
	}
}

func TestEvaluateValueEdge(t *testing.T) {
	th := detector.Thresholds{MinProfitPct: 100, MinValueEdge: 0.05}

	opps := detector.Evaluate([]domain.Comparable{comparable(domain.SameOutcome, 0.60, 0.50)}, th, t0)
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	if opps[0].Kind != domain.ValueEdge {
		t.Errorf("kind = %s", opps[0].Kind)
	}
	if opps[0].Favored != domain.ExchangeB {
		t.Errorf("favored = %s, want the lower-probability side", opps[0].Favored)
	}

	if got := detector.Evaluate([]domain.Comparable{comparable(domain.SameOutcome, 0.52, 0.50)}, th, t0); len(got) != 0 {
		t.Errorf("edge below minimum reported: %+v", got)
	}
}

func TestEvaluateValueEdgeBoundary(t *testing.T) {
	tests := []struct {
		name    string
		pa, pb  float64
		minEdge float64
		want    int
	}{
		{"edge equals minimum", 0.75, 0.5, 0.25, 1},
		{"edge just below minimum", 0.74, 0.5, 0.25, 0},
		{"zero minimum accepts equal prices", 0.5, 0.5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := detector.Thresholds{MinProfitPct: 100, MinValueEdge: tt.minEdge}
			got := detector.Evaluate([]domain.Comparable{comparable(domain.SameOutcome, tt.pa, tt.pb)}, th, t0)
			if len(got) != tt.want {
				t.Errorf("got %d opportunities, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEvaluateBothKinds(t *testing.T) {
	cs := []domain.Comparable{
		comparable(domain.OpposingOutcome, 0.40, 0.45),
		comparable(domain.SameOutcome, 0.40, 0.55),
	}
	th := detector.Thresholds{MinProfitPct: 0.5, MinValueEdge: 0.05}
	if got := detector.Evaluate(cs, th, t0); len(got) != 2 {
		t.Errorf("independent checks: got %d opportunities, want 2", len(got))
	}
	th.SuppressValueEdgeOnArb = true
	got := detector.Evaluate(cs, th, t0)
	if len(got) != 1 || got[0].Kind != domain.Arbitrage {
		t.Errorf("suppression: got %+v, want only the arbitrage", got)
	}
}

func TestFingerprintIgnoresPrice(t *testing.T) {
	th := detector.Thresholds{MinProfitPct: 0}
	first := detector.Evaluate([]domain.Comparable{comparable(domain.OpposingOutcome, 0.50, 0.45)}, th, t0)
	again := detector.Evaluate([]domain.Comparable{comparable(domain.OpposingOutcome, 0.50, 0.45)}, th, t0.Add(time.Minute))
	moved := detector.Evaluate([]domain.Comparable{comparable(domain.OpposingOutcome, 0.48, 0.44)}, th, t0)
	if len(first) != 1 || len(again) != 1 || len(moved) != 1 {
		t.Fatal("expected one opportunity per run")
	}
	if first[0].Fingerprint != again[0].Fingerprint {
		t.Error("fingerprint changed between identical runs")
	}
	if first[0].Fingerprint != moved[0].Fingerprint {
		t.Error("fingerprint depends on price")
	}

	swapped := comparable(domain.OpposingOutcome, 0.50, 0.45)
	swapped.A.Outcome, swapped.B.Outcome = "Warriors", "Los Angeles Lakers"
	other := detector.Evaluate([]domain.Comparable{swapped}, th, t0)
	if len(other) == 1 && other[0].Fingerprint == first[0].Fingerprint {
		t.Error("mirrored legs share a fingerprint")
	}
}

type fakeSuppressor struct {
	seen map[string]bool
	err  error
}

func (f *fakeSuppressor) FirstSeen(_ context.Context, fp string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[fp] {
		return false, nil
	}
	f.seen[fp] = true
	return true, nil
}

func TestDetectSuppressesRepeats(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cs := []domain.Comparable{comparable(domain.OpposingOutcome, 0.50, 0.45)}
	th := detector.Thresholds{MinProfitPct: 0.5, MinValueEdge: 1}

	d := detector.New(&fakeSuppressor{seen: map[string]bool{}}, logger)
	ctx := context.Background()
	if opps, n := d.Detect(ctx, cs, th); len(opps) != 1 || n != 0 {
		t.Fatalf("first cycle: %d opportunities, %d suppressed", len(opps), n)
	}
	if opps, n := d.Detect(ctx, cs, th); len(opps) != 0 || n != 1 {
		t.Fatalf("second cycle: %d opportunities, %d suppressed", len(opps), n)
	}

	failing := detector.New(&fakeSuppressor{err: errors.New("redis down")}, logger)
	if opps, _ := failing.Detect(ctx, cs, th); len(opps) != 1 {
		t.Errorf("suppressor failure should report the opportunity, got %d", len(opps))
	}
}
