// Package probability turns matched event pairs into comparable probability
// pairs for the detector.
//
// Probabilities are independent observations. Nothing here rescales a
// market to sum to 1, and a complement is only derived when the source
// states that the binary pair is complementary.
package probability

import (
	"strings"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/normalize"
)

// ToComparable expands each outcome link of pair into up to two
// comparables: one for the same logical outcome on both platforms, and one
// pairing the A outcome with its complement on B. A link whose probability
// is unavailable on either side yields nothing for that check.
func ToComparable(pair domain.MatchedPair, canon normalize.Canonicalizer) []domain.Comparable {
	identity := Identity(pair, canon)
	var out []domain.Comparable
	for _, link := range pair.OutcomeMapping {
		a, ok := lookup(pair.EventA, link.A)
		if !ok {
			continue
		}

		var same, opposing domain.OutcomePrice
		var okSame, okOpp bool
		if link.NegatedB {
			same, okSame = complementOf(pair.EventB, link.B)
			opposing, okOpp = lookup(pair.EventB, link.B)
		} else {
			same, okSame = lookup(pair.EventB, link.B)
			opposing, okOpp = complementOf(pair.EventB, link.B)
		}

		legA := leg(pair.EventA, a)
		if okSame {
			out = append(out, domain.Comparable{
				Kind:         domain.SameOutcome,
				A:            legA,
				B:            leg(pair.EventB, same),
				Participants: identity,
				Basis:        pair.Basis,
				Similarity:   pair.SimilarityScore,
			})
		}
		if okOpp {
			out = append(out, domain.Comparable{
				Kind:         domain.OpposingOutcome,
				A:            legA,
				B:            leg(pair.EventB, opposing),
				Participants: identity,
				Basis:        pair.Basis,
				Similarity:   pair.SimilarityScore,
			})
		}
	}
	return out
}

// Comparables flattens ToComparable over a cycle's matched pairs.
func Comparables(pairs []domain.MatchedPair, canon normalize.Canonicalizer) []domain.Comparable {
	var out []domain.Comparable
	for _, p := range pairs {
		out = append(out, ToComparable(p, canon)...)
	}
	return out
}

// Identity is the normalized participant set naming the matched occurrence.
// Events without participants fall back to the canonical title of side A.
func Identity(pair domain.MatchedPair, canon normalize.Canonicalizer) []string {
	if names := canon.Names(pair.EventA.Participants); len(names) > 0 {
		return names
	}
	if names := canon.Names(pair.EventB.Participants); len(names) > 0 {
		return names
	}
	return []string{canon.Title(pair.EventA.Title)}
}

func leg(ev domain.Event, o domain.OutcomePrice) domain.Leg {
	url := o.URL
	if url == "" {
		url = ev.URL
	}
	return domain.Leg{
		Platform:    ev.Platform,
		EventKey:    ev.Key,
		EventTitle:  ev.Title,
		Outcome:     o.Label,
		Probability: o.Probability,
		URL:         url,
	}
}

// lookup returns the quoted outcome, or for a complementary yes/no event
// derives it as 1 minus its quoted opposite.
func lookup(ev domain.Event, label string) (domain.OutcomePrice, bool) {
	if o, ok := ev.Outcome(label); ok {
		return o, true
	}
	if !ev.Complementary {
		return domain.OutcomePrice{}, false
	}
	opp, ok := binaryOpposite(label)
	if !ok {
		return domain.OutcomePrice{}, false
	}
	q, ok := ev.Outcome(opp)
	if !ok {
		return domain.OutcomePrice{}, false
	}
	p := 1 - q.Probability
	if p <= 0 || p >= 1 {
		return domain.OutcomePrice{}, false
	}
	return domain.OutcomePrice{Label: label, Probability: p, URL: q.URL}, true
}

// complementOf returns the outcome that resolves true exactly when label
// resolves false. It exists for yes/no events and for two-way markets;
// multi-way markets have no single complement.
func complementOf(ev domain.Event, label string) (domain.OutcomePrice, bool) {
	if opp, ok := binaryOpposite(label); ok {
		return lookup(ev, opp)
	}
	if len(ev.Outcomes) != 2 {
		return domain.OutcomePrice{}, false
	}
	switch {
	case strings.EqualFold(ev.Outcomes[0].Label, label):
		return ev.Outcomes[1], true
	case strings.EqualFold(ev.Outcomes[1].Label, label):
		return ev.Outcomes[0], true
	}
	return domain.OutcomePrice{}, false
}

func binaryOpposite(label string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "yes":
		return "No", true
	case "no":
		return "Yes", true
	}
	return "", false
}
