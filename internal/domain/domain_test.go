package domain_test

import (
	"math"
	"testing"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

func TestPlatform(t *testing.T) {
	if domain.ExchangeA.Other() != domain.ExchangeB || domain.ExchangeB.Other() != domain.ExchangeA {
		t.Error("Other does not swap platforms")
	}
	if domain.Platform("exchange_c").Valid() || !domain.ExchangeB.Valid() {
		t.Error("Valid misclassifies platforms")
	}
}

func TestEventIsBinary(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []string
		want     bool
	}{
		{"yes no", []string{"Yes", "No"}, true},
		{"padded lower case", []string{" yes ", "no"}, true},
		{"single yes", []string{"Yes"}, true},
		{"teams", []string{"Lakers", "Warriors"}, false},
		{"three way", []string{"Yes", "No", "Draw"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e domain.Event
			for _, l := range tt.outcomes {
				e.Outcomes = append(e.Outcomes, domain.OutcomePrice{Label: l, Probability: 0.5})
			}
			if got := e.IsBinary(); got != tt.want {
				t.Errorf("IsBinary = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventOutcomeIgnoresCase(t *testing.T) {
	e := domain.Event{Outcomes: []domain.OutcomePrice{{Label: "Golden State Warriors", Probability: 0.45}}}
	if o, ok := e.Outcome("golden state warriors"); !ok || o.Probability != 0.45 {
		t.Errorf("Outcome = %+v, %v", o, ok)
	}
	if _, ok := e.Outcome("Lakers"); ok {
		t.Error("unexpected outcome found")
	}
}

func TestLegAndAllocationMath(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.5, 2},
		{0.4, 2.5},
		{0, 0},
		{-0.1, 0},
	}
	for _, tt := range tests {
		if got := (domain.Leg{Probability: tt.p}).DecimalOdds(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DecimalOdds(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	a := domain.Allocation{TotalCapital: 250, GuaranteedProfit: 5}
	if got := a.ROI(); math.Abs(got-2) > 1e-9 {
		t.Errorf("ROI = %v, want 2", got)
	}
	if (domain.Allocation{}).ROI() != 0 {
		t.Error("zero capital should report zero ROI")
	}
}
