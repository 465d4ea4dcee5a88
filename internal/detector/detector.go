// Package detector evaluates comparable probability pairs for arbitrage and
// value-edge opportunities and filters out already-reported ones.
package detector

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Thresholds gate emitted opportunities. It is passed by value per call.
type Thresholds struct {
	// MinProfitPct is the minimum arbitrage margin, in percent of total
	// implied probability.
	MinProfitPct float64
	// MinValueEdge is the minimum absolute probability gap for a value edge.
	MinValueEdge float64
	// SuppressValueEdgeOnArb drops value edges for an event pair that
	// already produced an arbitrage in the same evaluation.
	SuppressValueEdgeOnArb bool
}

// DefaultThresholds returns the stock gates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinProfitPct:           0.5,
		MinValueEdge:           0.05,
		SuppressValueEdgeOnArb: true,
	}
}

// Evaluate runs both checks over every comparable. Opposing comparables are
// arbitrage candidates; same-outcome comparables are value-edge candidates.
// It is pure apart from assigning IDs and timestamps.
func Evaluate(comparables []domain.Comparable, th Thresholds, now time.Time) []domain.Opportunity {
	type pairKey struct{ a, b string }
	var arbs, edges []domain.Opportunity
	arbPairs := make(map[pairKey]bool)

	for _, c := range comparables {
		switch c.Kind {
		case domain.OpposingOutcome:
			total := c.A.Probability + c.B.Probability
			if total >= 1 {
				continue
			}
			pct := (1 - total) / total * 100
			if pct < th.MinProfitPct {
				continue
			}
			arbs = append(arbs, newOpportunity(c, domain.Arbitrage, 1-total, pct, "", now))
			arbPairs[pairKey{c.A.EventKey, c.B.EventKey}] = true

		case domain.SameOutcome:
			edge := math.Abs(c.A.Probability - c.B.Probability)
			if edge < th.MinValueEdge {
				continue
			}
			favored := domain.ExchangeA
			if c.B.Probability < c.A.Probability {
				favored = domain.ExchangeB
			}
			edges = append(edges, newOpportunity(c, domain.ValueEdge, edge, edge*100, favored, now))
		}
	}

	out := arbs
	for _, e := range edges {
		if th.SuppressValueEdgeOnArb && arbPairs[pairKey{e.LegA.EventKey, e.LegB.EventKey}] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func newOpportunity(c domain.Comparable, kind domain.OpportunityKind, margin, pct float64, favored domain.Platform, now time.Time) domain.Opportunity {
	return domain.Opportunity{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProbA:       c.A.Probability,
		ProbB:       c.B.Probability,
		Margin:      margin,
		MarginPct:   pct,
		Fingerprint: Fingerprint(c.Participants, c.A, c.B, kind),
		LegA:        c.A,
		LegB:        c.B,
		Favored:     favored,
		Basis:       c.Basis,
		Similarity:  c.Similarity,
		DetectedAt:  now,
	}
}

// Detector wraps Evaluate with duplicate suppression across cycles.
type Detector struct {
	suppressor domain.DuplicateSuppressor
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Detector. A nil suppressor reports every opportunity.
func New(suppressor domain.DuplicateSuppressor, logger *slog.Logger) *Detector {
	return &Detector{
		suppressor: suppressor,
		logger:     logger.With(slog.String("component", "detector")),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Detect evaluates comparables and drops opportunities whose fingerprint
// was already reported within the suppressor's retention window. It returns
// the new opportunities and the number suppressed.
func (d *Detector) Detect(ctx context.Context, comparables []domain.Comparable, th Thresholds) ([]domain.Opportunity, int) {
	return d.Suppress(ctx, d.Candidates(comparables, th))
}

// Candidates evaluates comparables without consulting the suppressor.
func (d *Detector) Candidates(comparables []domain.Comparable, th Thresholds) []domain.Opportunity {
	return Evaluate(comparables, th, d.now())
}

// Suppress records each fingerprint and drops those already reported
// within the retention window. Only opportunities that will actually be
// reported should pass through it. Suppressor failures are logged and the
// opportunity is reported.
func (d *Detector) Suppress(ctx context.Context, found []domain.Opportunity) ([]domain.Opportunity, int) {
	if d.suppressor == nil {
		return found, 0
	}

	out := found[:0]
	suppressed := 0
	for _, opp := range found {
		first, err := d.suppressor.FirstSeen(ctx, opp.Fingerprint)
		if err != nil {
			d.logger.Warn("duplicate check failed, reporting anyway",
				slog.String("fingerprint", opp.Fingerprint),
				slog.String("error", err.Error()),
			)
			first = true
		}
		if !first {
			suppressed++
			continue
		}
		out = append(out, opp)
	}
	if suppressed > 0 {
		d.logger.Debug("suppressed repeat opportunities", slog.Int("count", suppressed))
	}
	return out, suppressed
}
