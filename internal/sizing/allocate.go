// Package sizing computes equal-profit capital splits for arbitrage
// opportunities.
package sizing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Tolerance is the relative tolerance, against total capital, allowed
// between the two resolution profits.
const Tolerance = 1e-6

// Allocate splits bankroll*kellyFraction across the two legs of an
// arbitrage so that the realized profit is the same whichever leg resolves
// true.
//
//	stake_a = capital * d_b / (d_a + d_b)
//	stake_b = capital * d_a / (d_a + d_b)
func Allocate(opp domain.Opportunity, bankroll, kellyFraction float64) (domain.Allocation, error) {
	if opp.Kind != domain.Arbitrage {
		return domain.Allocation{}, fmt.Errorf("sizing: allocate %s: %w", opp.Kind, domain.ErrNotArbitrage)
	}
	if !(bankroll > 0) || math.IsInf(bankroll, 0) {
		return domain.Allocation{}, fmt.Errorf("sizing: bankroll %v: %w", bankroll, domain.ErrInvalidCapital)
	}
	if !(kellyFraction > 0) || kellyFraction > 1 {
		return domain.Allocation{}, fmt.Errorf("sizing: kelly fraction %v: %w", kellyFraction, domain.ErrInvalidCapital)
	}

	da, db := opp.LegA.DecimalOdds(), opp.LegB.DecimalOdds()
	if !(da > 1) || !(db > 1) || math.IsInf(da, 0) || math.IsInf(db, 0) {
		return domain.Allocation{}, fmt.Errorf("sizing: odds %v/%v: %w", da, db, domain.ErrInvalidOdds)
	}

	capital := bankroll * kellyFraction
	stakeA := capital * db / (da + db)
	stakeB := capital * da / (da + db)

	profitA := stakeA*da - capital
	profitB := stakeB*db - capital
	if math.Abs(profitA-profitB) > Tolerance*capital {
		return domain.Allocation{}, fmt.Errorf("sizing: profits diverge (%v vs %v): %w", profitA, profitB, domain.ErrInvalidOdds)
	}

	guaranteed := math.Min(stakeA*(da-1)-stakeB, stakeB*(db-1)-stakeA)
	if guaranteed <= 0 {
		return domain.Allocation{}, fmt.Errorf("sizing: guaranteed profit %v: %w", guaranteed, domain.ErrNotArbitrage)
	}

	return domain.Allocation{
		StakeA:           stakeA,
		StakeB:           stakeB,
		TotalCapital:     capital,
		GuaranteedProfit: guaranteed,
	}, nil
}

// Cents rounds a money amount half-away-from-zero to two decimals.
func Cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// RoundCents returns a copy of a with every amount rounded to cents, for
// display and storage. Rounding happens after the invariance check.
func RoundCents(a domain.Allocation) domain.Allocation {
	f := func(v float64) float64 { return Cents(v).InexactFloat64() }
	return domain.Allocation{
		StakeA:           f(a.StakeA),
		StakeB:           f(a.StakeB),
		TotalCapital:     f(a.TotalCapital),
		GuaranteedProfit: f(a.GuaranteedProfit),
	}
}
