package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossodds/internal/detector"
	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/matcher"
	"github.com/alanyoungcy/crossodds/internal/normalize"
	"github.com/alanyoungcy/crossodds/internal/probability"
	"github.com/alanyoungcy/crossodds/internal/sizing"
)

// cycleLockKey guards against two processes running overlapping cycles.
const cycleLockKey = "scan-cycle"

// Alerter delivers opportunity and failure alerts.
type Alerter interface {
	Alert(ctx context.Context, a domain.Alert) error
	CycleFailed(ctx context.Context, r domain.CycleReport) error
}

// Observer receives cycle metrics.
type Observer interface {
	ObserveCycle(r domain.CycleReport)
	ObserveOpportunity(o domain.Opportunity)
	ObserveMatches(pairs []domain.MatchedPair)
	ObserveRejected(p domain.Platform, n int)
	ObserveFetch(p domain.Platform, d time.Duration)
}

// ScanConfig holds the per-cycle parameters. It is passed by value into
// every stage and never mutated.
type ScanConfig struct {
	Matcher       matcher.Config
	Thresholds    detector.Thresholds
	Bankroll      float64
	KellyFraction float64
	// FetchAttempts is the number of tries per source; values below one
	// mean a single try.
	FetchAttempts int
	// FetchBackoff is multiplied by the attempt number between tries.
	FetchBackoff time.Duration
	// FetchTimeout bounds the concurrent fetch stage. Zero disables it.
	FetchTimeout time.Duration
}

// Sinks are the optional outputs of a cycle. Any nil field is skipped.
type Sinks struct {
	Opportunities domain.OpportunityStore
	Cycles        domain.CycleStore
	Audit         domain.AuditStore
	Status        domain.StatusCache
	Bus           domain.SignalBus
	Locks         domain.LockManager
	Alerts        Alerter
	Metrics       Observer
}

// Scanner runs polling cycles: fetch both platforms, normalize, match,
// detect, size and hand off.
type Scanner struct {
	sourceA  domain.QuoteSource
	sourceB  domain.QuoteSource
	matcher  *matcher.Matcher
	detector *detector.Detector
	sinks    Sinks
	cfg      ScanConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanner wires a Scanner.
func NewScanner(
	sourceA, sourceB domain.QuoteSource,
	m *matcher.Matcher,
	d *detector.Detector,
	sinks Sinks,
	cfg ScanConfig,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		sourceA:  sourceA,
		sourceB:  sourceB,
		matcher:  m,
		detector: d,
		sinks:    sinks,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunLoop runs a cycle immediately and then once per interval until ctx is
// cancelled. Cycles never overlap: a slow cycle delays the next tick.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	s.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scanner) runLogged(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("cycle failed", slog.String("error", err.Error()))
	}
}

// size allocates capital to every arbitrage. Arbitrages that cannot be
// sized are dropped before duplicate suppression, so their fingerprint
// stays unrecorded. Value edges pass through without an allocation.
func (s *Scanner) size(log *slog.Logger, report *domain.CycleReport, found []domain.Opportunity) ([]domain.Opportunity, map[string]domain.Allocation) {
	out := found[:0]
	allocations := make(map[string]domain.Allocation)
	for _, opp := range found {
		if opp.Kind != domain.Arbitrage {
			out = append(out, opp)
			continue
		}
		alloc, err := sizing.Allocate(opp, s.cfg.Bankroll, s.cfg.KellyFraction)
		if err != nil {
			report.AllocationErrs++
			log.Warn("arbitrage dropped, allocation rejected",
				slog.String("fingerprint", opp.Fingerprint),
				slog.Float64("margin_pct", opp.MarginPct),
				slog.String("error", err.Error()),
			)
			continue
		}
		allocations[opp.ID] = sizing.RoundCents(alloc)
		out = append(out, opp)
	}
	return out, allocations
}

// RunCycle executes one cycle and returns its report. The error is non-nil
// only when the cycle failed; empty and skipped cycles are not errors.
func (s *Scanner) RunCycle(ctx context.Context) (domain.CycleReport, error) {
	report := domain.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
	}
	log := s.logger.With(slog.String("cycle_id", report.ID))

	if s.sinks.Locks != nil {
		ttl := s.cfg.FetchTimeout + time.Minute
		unlock, err := s.sinks.Locks.Acquire(ctx, cycleLockKey, ttl)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			log.Info("cycle skipped, lock held elsewhere")
			report.Status = domain.CycleSkipped
			s.record(ctx, report)
			return report, nil
		case err != nil:
			log.Warn("cycle lock unavailable, running unguarded", slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	rawA, rawB, err := s.fetchBoth(ctx)
	if err != nil {
		return s.fail(ctx, report, err)
	}
	report.QuotesA, report.QuotesB = len(rawA), len(rawB)

	quotesA, rejA := normalize.NormalizeBatch(rawA, domain.ExchangeA, log)
	quotesB, rejB := normalize.NormalizeBatch(rawB, domain.ExchangeB, log)
	report.Rejected = rejA + rejB
	s.observeRejected(domain.ExchangeA, rejA)
	s.observeRejected(domain.ExchangeB, rejB)

	eventsA := normalize.GroupEvents(quotesA)
	eventsB := normalize.GroupEvents(quotesB)
	report.EventsA, report.EventsB = len(eventsA), len(eventsB)

	pairs := s.matcher.Match(eventsA, eventsB, s.cfg.Matcher)
	report.Matches = len(pairs)
	if s.sinks.Metrics != nil {
		s.sinks.Metrics.ObserveMatches(pairs)
	}

	comparables := probability.Comparables(pairs, s.cfg.Matcher.Canon)
	candidates, allocations := s.size(log, &report, s.detector.Candidates(comparables, s.cfg.Thresholds))
	opps, suppressed := s.detector.Suppress(ctx, candidates)
	report.Suppressed = suppressed

	for _, opp := range opps {
		alert := domain.Alert{Opportunity: opp, CycleID: report.ID}
		if alloc, ok := allocations[opp.ID]; ok {
			alert.Allocation = &alloc
			report.Allocated++
		}
		s.handOff(ctx, log, alert)
	}
	report.Opportunities = len(opps)

	report.Status = domain.CycleOK
	if len(opps) == 0 {
		report.Status = domain.CycleEmpty
	}
	report.Duration = s.now().Sub(report.StartedAt)
	s.record(ctx, report)

	log.Info("cycle complete",
		slog.String("status", string(report.Status)),
		slog.Int("quotes_a", report.QuotesA),
		slog.Int("quotes_b", report.QuotesB),
		slog.Int("rejected", report.Rejected),
		slog.Int("matches", report.Matches),
		slog.Int("opportunities", report.Opportunities),
		slog.Int("suppressed", report.Suppressed),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// fetchBoth fetches the two platforms concurrently. Either side failing
// after its retries fails the cycle.
func (s *Scanner) fetchBoth(ctx context.Context) ([]domain.RawQuote, []domain.RawQuote, error) {
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	var rawA, rawB []domain.RawQuote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawA, err = s.fetch(gctx, s.sourceA, domain.ExchangeA)
		return err
	})
	g.Go(func() error {
		var err error
		rawB, err = s.fetch(gctx, s.sourceB, domain.ExchangeB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rawA, rawB, nil
}

// fetch calls src with linear backoff between attempts. Authentication
// failures and cancellation are not retried.
func (s *Scanner) fetch(ctx context.Context, src domain.QuoteSource, p domain.Platform) ([]domain.RawQuote, error) {
	attempts := max(s.cfg.FetchAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		raws, err := src.FetchQuotes(ctx)
		if s.sinks.Metrics != nil {
			s.sinks.Metrics.ObserveFetch(p, time.Since(start))
		}
		if err == nil {
			return raws, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrUnauthorized) || ctx.Err() != nil || attempt == attempts {
			break
		}

		wait := s.cfg.FetchBackoff * time.Duration(attempt)
		s.logger.Warn("fetch failed, retrying",
			slog.String("platform", string(p)),
			slog.String("source", src.Name()),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pipeline: fetch %s: %w", p, ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("pipeline: fetch %s from %s: %w", p, src.Name(), lastErr)
}

// handOff persists, publishes and alerts one opportunity. Sink failures are
// logged and never stop the cycle.
func (s *Scanner) handOff(ctx context.Context, log *slog.Logger, alert domain.Alert) {
	id := slog.String("opportunity_id", alert.Opportunity.ID)

	if s.sinks.Opportunities != nil {
		if err := s.sinks.Opportunities.Insert(ctx, alert); err != nil {
			log.Error("persist opportunity failed", id, slog.String("error", err.Error()))
		}
	}

	if s.sinks.Bus != nil {
		payload, err := json.Marshal(alert)
		if err != nil {
			log.Error("marshal opportunity failed", id, slog.String("error", err.Error()))
		} else {
			if err := s.sinks.Bus.Publish(ctx, domain.OpportunityChannel, payload); err != nil {
				log.Warn("publish opportunity failed", id, slog.String("error", err.Error()))
			}
			if err := s.sinks.Bus.StreamAppend(ctx, domain.OpportunityStream, payload); err != nil {
				log.Warn("stream opportunity failed", id, slog.String("error", err.Error()))
			}
		}
	}

	if s.sinks.Alerts != nil {
		if err := s.sinks.Alerts.Alert(ctx, alert); err != nil {
			log.Warn("alert delivery failed", id, slog.String("error", err.Error()))
		}
	}

	if s.sinks.Metrics != nil {
		s.sinks.Metrics.ObserveOpportunity(alert.Opportunity)
	}

	log.Info("opportunity",
		id,
		slog.String("kind", string(alert.Opportunity.Kind)),
		slog.String("event_a", alert.Opportunity.LegA.EventTitle),
		slog.String("event_b", alert.Opportunity.LegB.EventTitle),
		slog.Float64("margin_pct", alert.Opportunity.MarginPct),
	)
}

// fail finishes a failed cycle: the report is recorded, audited and
// alerted, and the cause is returned.
func (s *Scanner) fail(ctx context.Context, report domain.CycleReport, cause error) (domain.CycleReport, error) {
	report.Status = domain.CycleFailed
	report.Error = cause.Error()
	report.Duration = s.now().Sub(report.StartedAt)
	s.record(ctx, report)

	sctx, cancel := sinkContext(ctx)
	defer cancel()
	if s.sinks.Audit != nil {
		detail := map[string]any{"cycle_id": report.ID, "error": report.Error}
		if err := s.sinks.Audit.Log(sctx, "cycle_failed", detail); err != nil {
			s.logger.Warn("audit cycle failure failed", slog.String("error", err.Error()))
		}
	}
	if s.sinks.Alerts != nil && ctx.Err() == nil {
		if err := s.sinks.Alerts.CycleFailed(sctx, report); err != nil {
			s.logger.Warn("failure alert failed", slog.String("error", err.Error()))
		}
	}
	return report, cause
}

// record stores the report, refreshes the status cache and announces it.
func (s *Scanner) record(ctx context.Context, report domain.CycleReport) {
	if s.sinks.Metrics != nil {
		s.sinks.Metrics.ObserveCycle(report)
	}

	ctx, cancel := sinkContext(ctx)
	defer cancel()

	if s.sinks.Cycles != nil {
		if err := s.sinks.Cycles.Insert(ctx, report); err != nil {
			s.logger.Error("persist cycle failed", slog.String("error", err.Error()))
		}
	}
	if s.sinks.Status != nil {
		if err := s.sinks.Status.SetLatest(ctx, report); err != nil {
			s.logger.Warn("status cache update failed", slog.String("error", err.Error()))
		}
	}
	if s.sinks.Bus != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.sinks.Bus.Publish(ctx, domain.CycleChannel, payload); err != nil {
				s.logger.Warn("publish cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Scanner) observeRejected(p domain.Platform, n int) {
	if s.sinks.Metrics != nil && n > 0 {
		s.sinks.Metrics.ObserveRejected(p, n)
	}
}

// sinkContext detaches bookkeeping writes from shutdown so that the last
// report still lands.
func sinkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
