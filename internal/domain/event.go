package domain

import (
	"strings"
	"time"
)

// OutcomePrice is a single outcome of an Event with its implied probability.
type OutcomePrice struct {
	Label       string
	Probability float64
	URL         string
}

// Event groups the same-platform quotes that describe one real-world
// occurrence. Outcome probabilities are independent observations and are not
// expected to sum to 1.
type Event struct {
	Platform     Platform
	Key          string
	Title        string
	Participants []string
	Category     string
	EventTime    time.Time
	URL          string
	Outcomes     []OutcomePrice
	// Complementary mirrors RawQuote.Complementary for binary events.
	Complementary bool
}

// Outcome returns the outcome with the given label (case-insensitive).
func (e Event) Outcome(label string) (OutcomePrice, bool) {
	for _, o := range e.Outcomes {
		if strings.EqualFold(o.Label, label) {
			return o, true
		}
	}
	return OutcomePrice{}, false
}

// IsBinary reports whether the event is a yes/no contract.
func (e Event) IsBinary() bool {
	if len(e.Outcomes) == 0 || len(e.Outcomes) > 2 {
		return false
	}
	for _, o := range e.Outcomes {
		l := strings.ToLower(strings.TrimSpace(o.Label))
		if l != "yes" && l != "no" {
			return false
		}
	}
	return true
}

// MatchBasis records how two events were associated.
type MatchBasis string

const (
	MatchDirectTitle      MatchBasis = "direct_title"
	MatchParticipantSet   MatchBasis = "participant_set"
	MatchTranslatedBinary MatchBasis = "translated_binary"
)

// OutcomeLink pairs an outcome of event A with the same logical outcome on
// event B. When NegatedB is set, the A outcome corresponds to "not B" (the NO
// side of a translated binary question).
type OutcomeLink struct {
	A        string
	B        string
	NegatedB bool
}

// MatchedPair associates two cross-platform events believed to describe the
// same occurrence.
type MatchedPair struct {
	EventA          Event
	EventB          Event
	SimilarityScore float64
	OutcomeMapping  []OutcomeLink
	Basis           MatchBasis
}
