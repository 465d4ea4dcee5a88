package sizing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/sizing"
)

func arb(da, db float64) domain.Opportunity {
	return domain.Opportunity{
		Kind: domain.Arbitrage,
		LegA: domain.Leg{Platform: domain.ExchangeA, Probability: 1 / da},
		LegB: domain.Leg{Platform: domain.ExchangeB, Probability: 1 / db},
	}
}

func TestAllocateEqualProfit(t *testing.T) {
	alloc, err := sizing.Allocate(arb(2.5, 2.2), 10000, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"total capital", alloc.TotalCapital, 5000},
		{"stake a", alloc.StakeA, 2340.43},
		{"stake b", alloc.StakeB, 2659.57},
		{"guaranteed profit", alloc.GuaranteedProfit, 851.06},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.01 {
			t.Errorf("%s = %.4f, want %.2f", c.name, c.got, c.want)
		}
	}

	ifA := alloc.StakeA*2.5 - alloc.TotalCapital
	ifB := alloc.StakeB*2.2 - alloc.TotalCapital
	if math.Abs(ifA-ifB) > 1e-6*alloc.TotalCapital {
		t.Errorf("profit differs by resolution: %v vs %v", ifA, ifB)
	}
}

func TestAllocateInvarianceAcrossOdds(t *testing.T) {
	for _, odds := range [][2]float64{{2.1, 2.1}, {1.5, 3.5}, {1.05, 25}, {3.2, 1.6}} {
		alloc, err := sizing.Allocate(arb(odds[0], odds[1]), 2500, 0.25)
		if err != nil {
			t.Fatalf("odds %v: %v", odds, err)
		}
		ifA := alloc.StakeA*odds[0] - alloc.TotalCapital
		ifB := alloc.StakeB*odds[1] - alloc.TotalCapital
		if math.Abs(ifA-ifB) > 1e-6*alloc.TotalCapital {
			t.Errorf("odds %v: %v vs %v", odds, ifA, ifB)
		}
		if math.Abs(alloc.StakeA+alloc.StakeB-alloc.TotalCapital) > 1e-9 {
			t.Errorf("odds %v: stakes do not sum to capital", odds)
		}
	}
}

func TestAllocateRejects(t *testing.T) {
	valueEdge := arb(2.5, 2.2)
	valueEdge.Kind = domain.ValueEdge

	tests := []struct {
		name     string
		opp      domain.Opportunity
		bankroll float64
		kelly    float64
		want     error
	}{
		{"odds of one", arb(1, 3), 1000, 0.5, domain.ErrInvalidOdds},
		{"odds below one", domain.Opportunity{Kind: domain.Arbitrage, LegA: domain.Leg{Probability: 1.2}, LegB: domain.Leg{Probability: 0.3}}, 1000, 0.5, domain.ErrInvalidOdds},
		{"missing probability", domain.Opportunity{Kind: domain.Arbitrage, LegB: domain.Leg{Probability: 0.3}}, 1000, 0.5, domain.ErrInvalidOdds},
		{"value edge", valueEdge, 1000, 0.5, domain.ErrNotArbitrage},
		{"not an arbitrage at these prices", arb(1.8, 1.9), 1000, 0.5, domain.ErrNotArbitrage},
		{"zero bankroll", arb(2.5, 2.2), 0, 0.5, domain.ErrInvalidCapital},
		{"kelly above one", arb(2.5, 2.2), 1000, 1.5, domain.ErrInvalidCapital},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sizing.Allocate(tt.opp, tt.bankroll, tt.kelly)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRoundCents(t *testing.T) {
	a := sizing.RoundCents(domain.Allocation{StakeA: 2340.425531, StakeB: 2659.574468, TotalCapital: 5000, GuaranteedProfit: 851.0638})
	if a.StakeA != 2340.43 || a.StakeB != 2659.57 || a.GuaranteedProfit != 851.06 {
		t.Errorf("rounded = %+v", a)
	}
	if got := sizing.Cents(12.345).String(); got != "12.35" {
		t.Errorf("Cents(12.345) = %s", got)
	}
}
