package domain

import (
	"context"
	"time"
)

// Platform identifies one of the two marketplaces being cross-referenced.
type Platform string

const (
	// ExchangeA is the binary-outcome prediction exchange (contract prices 0..1).
	ExchangeA Platform = "exchange_a"
	// ExchangeB is the fixed-odds sportsbook (decimal odds).
	ExchangeB Platform = "exchange_b"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == ExchangeA || p == ExchangeB
}

// Other returns the opposite platform.
func (p Platform) Other() Platform {
	if p == ExchangeA {
		return ExchangeB
	}
	return ExchangeA
}

// RawQuote is one platform-native priced outcome as produced by a fetch
// client. Exactly one of Price (contract platforms) or DecimalOdds
// (sportsbooks) is meaningful, depending on the platform it came from.
type RawQuote struct {
	Source       string    `json:"source"` // provider name, e.g. "polymarket"
	EventKey     string    `json:"event_key"`
	EventTitle   string    `json:"event_title"`
	Outcome      string    `json:"outcome"`
	Participants []string  `json:"participants,omitempty"`
	Category     string    `json:"category,omitempty"`
	EventTime    time.Time `json:"event_time,omitempty"`
	URL          string    `json:"url,omitempty"`
	Price        float64   `json:"price,omitempty"`
	DecimalOdds  float64   `json:"decimal_odds,omitempty"`
	// Complementary is set when the source guarantees that the event's two
	// binary outcomes sum to exactly 1.
	Complementary bool      `json:"complementary,omitempty"`
	ObservedAt    time.Time `json:"observed_at,omitempty"`
}

// Quote is one normalized priced outcome. ImpliedProbability is always in the
// open interval (0,1). Quotes are created per cycle and never mutated.
type Quote struct {
	Platform           Platform
	EventKey           string
	OutcomeLabel       string
	ImpliedProbability float64
	EventTitle         string
	Participants       []string
	Category           string
	EventTime          time.Time // zero when unknown
	SourceURL          string
	Complementary      bool
	ObservedAt         time.Time
}

// QuoteSource fetches the current raw quotes of one platform.
type QuoteSource interface {
	// Name identifies the provider in logs and metrics, e.g. "cloudbet".
	Name() string
	FetchQuotes(ctx context.Context) ([]RawQuote, error)
}
