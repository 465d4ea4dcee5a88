// Package matcher pairs events from the two platforms that describe the same
// real-world occurrence and maps their outcomes onto each other.
package matcher

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/normalize"
)

// Config is the per-run matching configuration. It is passed by value into
// every Match call and never mutated.
type Config struct {
	// SimilarityThreshold gates direct-title and participant-set matches (0..100).
	SimilarityThreshold float64
	// TranslatedThreshold gates yes/no question to named-outcome matches.
	TranslatedThreshold float64
	// OutcomeThreshold gates outcome label and participant name equivalence.
	OutcomeThreshold float64
	// TitleWeight and ParticipantWeight blend the participant-set score.
	TitleWeight       float64
	ParticipantWeight float64
	// ContextWeight is the share of a translated score taken from the
	// question context; the rest comes from subject coverage.
	ContextWeight float64
	// TimeWindow bounds the event-time difference of a candidate pair.
	// Zero disables the check.
	TimeWindow time.Duration
	// TranslatedTimeWindow replaces TimeWindow for yes/no question pairs,
	// whose resolution date rarely equals the start of the named event.
	TranslatedTimeWindow time.Duration
	// MaxCandidates caps the events considered per side.
	MaxCandidates int
	// Categories restricts both sides to these canonical categories. Empty
	// means every category.
	Categories []string
	// RequireParticipants drops events without a participant list.
	RequireParticipants bool
	// Canon reduces names and titles to comparable form.
	Canon normalize.Canonicalizer
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:  85,
		TranslatedThreshold:  55,
		OutcomeThreshold:     85,
		TitleWeight:          0.4,
		ParticipantWeight:    0.6,
		ContextWeight:        0.6,
		TimeWindow:           48 * time.Hour,
		TranslatedTimeWindow: 90 * 24 * time.Hour,
		MaxCandidates:        500,
		Canon:                normalize.DefaultCanonicalizer(),
	}
}

// Matcher holds the similarity function and logger. The matching itself is
// a pure function of its inputs and Config.
type Matcher struct {
	sim    Similarity
	logger *slog.Logger
}

// New creates a Matcher. A nil sim selects TokenSortRatio.
func New(sim Similarity, logger *slog.Logger) *Matcher {
	if sim == nil {
		sim = TokenSortRatio{}
	}
	return &Matcher{
		sim:    sim,
		logger: logger.With(slog.String("component", "matcher")),
	}
}

// prepared caches the canonical forms of one event.
type prepared struct {
	ev           domain.Event
	title        string
	participants []string
	binary       bool
}

type candidate struct {
	i, j    int
	score   float64
	basis   domain.MatchBasis
	mapping []domain.OutcomeLink
}

// Match pairs events of side A with events of side B. Each event appears in
// at most one returned pair; when several pairs compete for an event, the
// highest-scoring pair wins and ties go to the earlier event in input order.
// Pairs with an empty outcome mapping or an unresolvable translation are
// skipped.
func (m *Matcher) Match(eventsA, eventsB []domain.Event, cfg Config) []domain.MatchedPair {
	as := m.prepare(eventsA, cfg)
	bs := m.prepare(eventsB, cfg)

	var cands []candidate
	ambiguous := 0
	for i := range as {
		for j := range bs {
			c, err := m.score(as[i], bs[j], cfg)
			if err != nil {
				if errors.Is(err, domain.ErrAmbiguousTranslation) {
					ambiguous++
					m.logger.Debug("ambiguous translation skipped",
						slog.String("event_a", as[i].ev.Key),
						slog.String("event_b", bs[j].ev.Key),
					)
				}
				continue
			}
			if c.score <= 0 {
				continue
			}
			c.i, c.j = i, j
			cands = append(cands, c)
		}
	}

	sort.SliceStable(cands, func(x, y int) bool {
		if cands[x].score != cands[y].score {
			return cands[x].score > cands[y].score
		}
		if cands[x].i != cands[y].i {
			return cands[x].i < cands[y].i
		}
		return cands[x].j < cands[y].j
	})

	usedA := make([]bool, len(as))
	usedB := make([]bool, len(bs))
	var pairs []domain.MatchedPair
	for _, c := range cands {
		if usedA[c.i] || usedB[c.j] {
			continue
		}
		usedA[c.i], usedB[c.j] = true, true
		pairs = append(pairs, domain.MatchedPair{
			EventA:          as[c.i].ev,
			EventB:          bs[c.j].ev,
			SimilarityScore: c.score,
			OutcomeMapping:  c.mapping,
			Basis:           c.basis,
		})
	}

	if len(pairs) == 0 {
		m.logger.Info("no cross-platform matches",
			slog.Int("events_a", len(as)),
			slog.Int("events_b", len(bs)),
		)
	} else {
		m.logger.Info("matching complete",
			slog.Int("events_a", len(as)),
			slog.Int("events_b", len(bs)),
			slog.Int("candidates", len(cands)),
			slog.Int("matches", len(pairs)),
			slog.Int("ambiguous", ambiguous),
		)
	}
	return pairs
}

func (m *Matcher) prepare(events []domain.Event, cfg Config) []prepared {
	scope := make(map[string]bool, len(cfg.Categories))
	for _, c := range cfg.Categories {
		if c = normalize.Category(c); c != "" {
			scope[c] = true
		}
	}

	out := make([]prepared, 0, len(events))
	for _, ev := range events {
		if len(scope) > 0 && !scope[ev.Category] {
			continue
		}
		if cfg.RequireParticipants && len(ev.Participants) == 0 {
			continue
		}
		if len(ev.Outcomes) == 0 {
			continue
		}
		if cfg.MaxCandidates > 0 && len(out) >= cfg.MaxCandidates {
			m.logger.Warn("candidate cap reached",
				slog.String("platform", string(ev.Platform)),
				slog.Int("max_candidates", cfg.MaxCandidates),
				slog.Int("total", len(events)),
			)
			break
		}
		out = append(out, prepared{
			ev:           ev,
			title:        cfg.Canon.Title(ev.Title),
			participants: cfg.Canon.Names(ev.Participants),
			binary:       ev.IsBinary(),
		})
	}
	return out
}

// score evaluates one candidate pair. A zero score means no match.
func (m *Matcher) score(a, b prepared, cfg Config) (candidate, error) {
	if a.ev.Category != "" && b.ev.Category != "" && a.ev.Category != b.ev.Category {
		return candidate{}, nil
	}

	if a.binary && !b.binary {
		if !withinWindow(a.ev.EventTime, b.ev.EventTime, cfg.TranslatedTimeWindow) {
			return candidate{}, nil
		}
		t, err := m.translate(a, b, cfg)
		if err != nil {
			return candidate{}, err
		}
		if t.score < cfg.TranslatedThreshold {
			return candidate{}, nil
		}
		return candidate{
			score:   t.score,
			basis:   domain.MatchTranslatedBinary,
			mapping: t.links(a.ev),
		}, nil
	}

	if !withinWindow(a.ev.EventTime, b.ev.EventTime, cfg.TimeWindow) {
		return candidate{}, nil
	}

	titleScore := m.sim.Score(a.title, b.title)
	c := candidate{score: titleScore, basis: domain.MatchDirectTitle}
	if len(a.participants) > 0 && len(b.participants) > 0 {
		overlap := m.participantOverlap(a.participants, b.participants, cfg)
		c.score = blend(titleScore, overlap, cfg.TitleWeight, cfg.ParticipantWeight)
		c.basis = domain.MatchParticipantSet
	}
	if c.score < cfg.SimilarityThreshold {
		return candidate{}, nil
	}

	c.mapping = m.mapOutcomes(a.ev.Outcomes, b.ev.Outcomes, cfg)
	if len(c.mapping) == 0 {
		return candidate{}, nil
	}
	return c, nil
}

func blend(title, participants, wT, wP float64) float64 {
	if wT+wP <= 0 {
		return participants
	}
	return (wT*title + wP*participants) / (wT + wP)
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	if window <= 0 || a.IsZero() || b.IsZero() {
		return true
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// nameCredit scores two canonical names in [0,1].
func (m *Matcher) nameCredit(a, b string, cfg Config) float64 {
	if a == b {
		return 1
	}
	if tokensContained(a, b) {
		return 0.9
	}
	if s := m.sim.Score(a, b); s >= cfg.OutcomeThreshold {
		return s / 100
	}
	return 0
}

// participantOverlap is 100 * (credited names) / (size of the larger set).
// Each name on the larger side is credited at most once.
func (m *Matcher) participantOverlap(pa, pb []string, cfg Config) float64 {
	small, large := pa, pb
	if len(small) > len(large) {
		small, large = large, small
	}
	used := make([]bool, len(large))
	total := 0.0
	for _, s := range small {
		best, bestIdx := 0.0, -1
		for k, l := range large {
			if used[k] {
				continue
			}
			if c := m.nameCredit(s, l, cfg); c > best {
				best, bestIdx = c, k
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			total += best
		}
	}
	return 100 * total / float64(len(large))
}

// tokensContained reports whether every token of the shorter name appears
// in the longer one.
func tokensContained(a, b string) bool {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	for _, t := range ta {
		if !set[t] {
			return false
		}
	}
	return true
}

var outcomeVariants = map[string]string{
	"yes": "yes", "win": "yes", "victory": "yes", "success": "yes", "true": "yes",
	"no": "no", "lose": "no", "loss": "no", "defeat": "no", "false": "no",
	"draw": "draw", "tie": "draw", "x": "draw",
}

// mapOutcomes pairs outcome labels of A and B greedily by descending
// similarity. Every label is used at most once.
func (m *Matcher) mapOutcomes(oa, ob []domain.OutcomePrice, cfg Config) []domain.OutcomeLink {
	type link struct {
		i, j  int
		score float64
	}
	ca := make([]string, len(oa))
	for i, o := range oa {
		ca[i] = cfg.Canon.Name(o.Label)
	}
	cb := make([]string, len(ob))
	for j, o := range ob {
		cb[j] = cfg.Canon.Name(o.Label)
	}

	var links []link
	for i := range oa {
		for j := range ob {
			var s float64
			va, okA := outcomeVariants[ca[i]]
			vb, okB := outcomeVariants[cb[j]]
			switch {
			case ca[i] == "" || cb[j] == "":
				continue
			case ca[i] == cb[j]:
				s = 100
			case okA && okB:
				if va != vb {
					continue
				}
				s = 100
			case okA || okB:
				continue
			default:
				s = 100 * m.nameCredit(ca[i], cb[j], cfg)
			}
			if s >= cfg.OutcomeThreshold {
				links = append(links, link{i, j, s})
			}
		}
	}
	sort.SliceStable(links, func(x, y int) bool { return links[x].score > links[y].score })

	usedA := make([]bool, len(oa))
	usedB := make([]bool, len(ob))
	chosen := make([]int, len(oa))
	for i := range chosen {
		chosen[i] = -1
	}
	for _, l := range links {
		if usedA[l.i] || usedB[l.j] {
			continue
		}
		usedA[l.i], usedB[l.j] = true, true
		chosen[l.i] = l.j
	}

	var out []domain.OutcomeLink
	for i, j := range chosen {
		if j < 0 {
			continue
		}
		out = append(out, domain.OutcomeLink{A: oa[i].Label, B: ob[j].Label})
	}
	return out
}
