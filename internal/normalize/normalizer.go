// Package normalize converts platform-native raw quotes into the common Quote
// shape and groups quotes into events.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Normalize converts one raw record into a Quote. Contract prices map to
// probability directly; decimal odds d map to 1/d. Records with missing
// identity fields or a derived probability outside (0,1) are rejected with
// domain.ErrMalformedQuote.
func Normalize(raw domain.RawQuote, platform domain.Platform) (domain.Quote, error) {
	if !platform.Valid() {
		return domain.Quote{}, fmt.Errorf("%w: unknown platform %q", domain.ErrMalformedQuote, platform)
	}
	if strings.TrimSpace(raw.EventKey) == "" {
		return domain.Quote{}, fmt.Errorf("%w: missing event key", domain.ErrMalformedQuote)
	}
	if strings.TrimSpace(raw.Outcome) == "" {
		return domain.Quote{}, fmt.Errorf("%w: event %s: missing outcome label", domain.ErrMalformedQuote, raw.EventKey)
	}
	if strings.TrimSpace(raw.EventTitle) == "" {
		return domain.Quote{}, fmt.Errorf("%w: event %s: missing title", domain.ErrMalformedQuote, raw.EventKey)
	}

	var prob float64
	switch platform {
	case domain.ExchangeA:
		prob = raw.Price
	case domain.ExchangeB:
		if raw.DecimalOdds == 0 || math.IsNaN(raw.DecimalOdds) {
			return domain.Quote{}, fmt.Errorf("%w: event %s: missing decimal odds", domain.ErrMalformedQuote, raw.EventKey)
		}
		prob = 1 / raw.DecimalOdds
	}
	if math.IsNaN(prob) || prob <= 0 || prob >= 1 {
		return domain.Quote{}, fmt.Errorf("%w: event %s outcome %q: probability %v outside (0,1)",
			domain.ErrMalformedQuote, raw.EventKey, raw.Outcome, prob)
	}

	participants := make([]string, 0, len(raw.Participants))
	for _, p := range raw.Participants {
		if p = strings.TrimSpace(p); p != "" {
			participants = append(participants, p)
		}
	}

	return domain.Quote{
		Platform:           platform,
		EventKey:           raw.EventKey,
		OutcomeLabel:       strings.TrimSpace(raw.Outcome),
		ImpliedProbability: prob,
		EventTitle:         strings.TrimSpace(raw.EventTitle),
		Participants:       participants,
		Category:           Category(raw.Category),
		EventTime:          raw.EventTime,
		SourceURL:          raw.URL,
		Complementary:      raw.Complementary,
		ObservedAt:         raw.ObservedAt,
	}, nil
}

// NormalizeBatch normalizes every record of a batch. Rejected records are
// dropped and counted; the count is logged but never fails the batch.
func NormalizeBatch(raws []domain.RawQuote, platform domain.Platform, logger *slog.Logger) ([]domain.Quote, int) {
	quotes := make([]domain.Quote, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		q, err := Normalize(raw, platform)
		if err != nil {
			rejected++
			logger.Debug("quote rejected",
				slog.String("platform", string(platform)),
				slog.String("error", err.Error()),
			)
			continue
		}
		quotes = append(quotes, q)
	}
	if rejected > 0 {
		logger.Info("rejected malformed quotes",
			slog.String("platform", string(platform)),
			slog.Int("rejected", rejected),
			slog.Int("accepted", len(quotes)),
		)
	}
	return quotes, rejected
}

// GroupEvents groups quotes by (platform, event key) in first-seen order.
// When an outcome is quoted twice, the most recently observed quote wins.
func GroupEvents(quotes []domain.Quote) []domain.Event {
	type groupKey struct {
		platform domain.Platform
		key      string
	}
	type seenOutcome struct {
		idx int
		at  time.Time
	}
	index := make(map[groupKey]int)
	observed := make(map[groupKey]map[string]seenOutcome)
	var events []domain.Event

	for _, q := range quotes {
		k := groupKey{q.Platform, q.EventKey}
		i, ok := index[k]
		if !ok {
			i = len(events)
			index[k] = i
			observed[k] = make(map[string]seenOutcome)
			events = append(events, domain.Event{
				Platform:      q.Platform,
				Key:           q.EventKey,
				Title:         q.EventTitle,
				Participants:  append([]string(nil), q.Participants...),
				Category:      q.Category,
				EventTime:     q.EventTime,
				URL:           q.SourceURL,
				Complementary: q.Complementary,
			})
		}
		ev := &events[i]
		if ev.Category == "" {
			ev.Category = q.Category
		}
		if ev.EventTime.IsZero() {
			ev.EventTime = q.EventTime
		}
		if len(ev.Participants) == 0 && len(q.Participants) > 0 {
			ev.Participants = append([]string(nil), q.Participants...)
		}

		label := strings.ToLower(q.OutcomeLabel)
		if prev, seen := observed[k][label]; seen {
			if q.ObservedAt.After(prev.at) {
				ev.Outcomes[prev.idx] = domain.OutcomePrice{Label: q.OutcomeLabel, Probability: q.ImpliedProbability, URL: q.SourceURL}
				observed[k][label] = seenOutcome{idx: prev.idx, at: q.ObservedAt}
			}
			continue
		}
		observed[k][label] = seenOutcome{idx: len(ev.Outcomes), at: q.ObservedAt}
		ev.Outcomes = append(ev.Outcomes, domain.OutcomePrice{
			Label:       q.OutcomeLabel,
			Probability: q.ImpliedProbability,
			URL:         q.SourceURL,
		})
	}
	return events
}
