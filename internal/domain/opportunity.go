package domain

import "time"

// ComparisonKind tells the detector which check applies to a Comparable.
type ComparisonKind string

const (
	// SameOutcome compares the same logical outcome on both platforms.
	SameOutcome ComparisonKind = "same"
	// OpposingOutcome compares an outcome on A with its complement on B.
	OpposingOutcome ComparisonKind = "opposing"
)

// Leg is one side of a comparison: a concrete, bettable outcome.
type Leg struct {
	Platform    Platform `json:"platform"`
	EventKey    string   `json:"event_key"`
	EventTitle  string   `json:"event_title"`
	Outcome     string   `json:"outcome"`
	Probability float64  `json:"probability"`
	URL         string   `json:"url,omitempty"`
}

// DecimalOdds returns the decimal-odds equivalent of the leg's probability.
func (l Leg) DecimalOdds() float64 {
	if l.Probability <= 0 {
		return 0
	}
	return 1 / l.Probability
}

// Comparable is a pair of probabilities that the detector can evaluate.
type Comparable struct {
	Kind         ComparisonKind
	A            Leg
	B            Leg
	Participants []string // normalized identity of the matched occurrence
	Basis        MatchBasis
	Similarity   float64
}

// OpportunityKind classifies a detected discrepancy.
type OpportunityKind string

const (
	Arbitrage OpportunityKind = "arbitrage"
	ValueEdge OpportunityKind = "value_edge"
)

// Opportunity is a detected priceable discrepancy.
//
// For Arbitrage, Margin is 1-(p_a+p_b) and MarginPct is (1-total)/total*100.
// For ValueEdge, Margin is the probability gap in favour of Favored.
type Opportunity struct {
	ID          string          `json:"id"`
	Kind        OpportunityKind `json:"kind"`
	ProbA       float64         `json:"prob_a"`
	ProbB       float64         `json:"prob_b"`
	Margin      float64         `json:"margin"`
	MarginPct   float64         `json:"margin_pct"`
	Fingerprint string          `json:"fingerprint"`
	LegA        Leg             `json:"leg_a"`
	LegB        Leg             `json:"leg_b"`
	Favored     Platform        `json:"favored,omitempty"`
	Basis       MatchBasis      `json:"basis"`
	Similarity  float64         `json:"similarity"`
	DetectedAt  time.Time       `json:"detected_at"`
}

// Allocation is the equal-profit capital split for an arbitrage opportunity.
type Allocation struct {
	StakeA           float64 `json:"stake_a"`
	StakeB           float64 `json:"stake_b"`
	TotalCapital     float64 `json:"total_capital"`
	GuaranteedProfit float64 `json:"guaranteed_profit"`
}

// ROI returns the guaranteed profit as a percentage of total capital.
func (a Allocation) ROI() float64 {
	if a.TotalCapital == 0 {
		return 0
	}
	return a.GuaranteedProfit / a.TotalCapital * 100
}

// Alert is what the pipeline hands to alerting and persistence. Allocation is
// nil for value edges, which are sized by the caller's own risk policy.
type Alert struct {
	Opportunity Opportunity `json:"opportunity"`
	Allocation  *Allocation `json:"allocation,omitempty"`
	CycleID     string      `json:"cycle_id"`
}
