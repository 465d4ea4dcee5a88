package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore. Legs are stored as
// JSONB; allocation columns are NULL for value edges.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunitySelect = `SELECT id, cycle_id, kind, fingerprint, prob_a, prob_b,
	margin, margin_pct, favored, basis, similarity, leg_a, leg_b,
	stake_a, stake_b, total_capital, guaranteed_profit, detected_at
	FROM opportunities`

// Insert stores one handed-off alert. Re-inserting the same ID is a no-op.
func (s *OpportunityStore) Insert(ctx context.Context, alert domain.Alert) error {
	o := alert.Opportunity
	legA, err := json.Marshal(o.LegA)
	if err != nil {
		return fmt.Errorf("postgres: marshal leg a %s: %w", o.ID, err)
	}
	legB, err := json.Marshal(o.LegB)
	if err != nil {
		return fmt.Errorf("postgres: marshal leg b %s: %w", o.ID, err)
	}

	var a domain.Allocation
	sized := alert.Allocation != nil
	if sized {
		a = *alert.Allocation
	}

	const query = `
		INSERT INTO opportunities (
			id, cycle_id, kind, fingerprint, prob_a, prob_b,
			margin, margin_pct, favored, basis, similarity, leg_a, leg_b,
			stake_a, stake_b, total_capital, guaranteed_profit, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		) ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		o.ID, alert.CycleID, string(o.Kind), o.Fingerprint, o.ProbA, o.ProbB,
		o.Margin, o.MarginPct, string(o.Favored), string(o.Basis), o.Similarity, legA, legB,
		nullableFloat(a.StakeA, sized), nullableFloat(a.StakeB, sized),
		nullableFloat(a.TotalCapital, sized), nullableFloat(a.GuaranteedProfit, sized),
		o.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one alert or domain.ErrNotFound.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.Alert, error) {
	rows, err := s.pool.Query(ctx, opportunitySelect+` WHERE id = $1`, id)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	alerts, err := scanAlerts(rows)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	if len(alerts) == 0 {
		return domain.Alert{}, domain.ErrNotFound
	}
	return alerts[0], nil
}

// ListRecent returns alerts newest first, optionally filtered by kind.
func (s *OpportunityStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	var f filter
	if opts.Kind != "" {
		f.add("kind = $%d", string(opts.Kind))
	}
	query, args := f.build(opportunitySelect, "detected_at", opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	return alerts, nil
}

// ListBefore returns every alert detected before the cutoff, oldest first.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error) {
	rows, err := s.pool.Query(ctx, opportunitySelect+` WHERE detected_at < $1 ORDER BY detected_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before %s: %w", before.Format(time.RFC3339), err)
	}
	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	return alerts, nil
}

// DeleteBefore removes alerts detected before the cutoff.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanAlerts(rows pgx.Rows) ([]domain.Alert, error) {
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var al domain.Alert
		var kind, favored, basis string
		var legA, legB []byte
		var stakeA, stakeB, capital, gtd *float64
		o := &al.Opportunity
		if err := rows.Scan(
			&o.ID, &al.CycleID, &kind, &o.Fingerprint, &o.ProbA, &o.ProbB,
			&o.Margin, &o.MarginPct, &favored, &basis, &o.Similarity, &legA, &legB,
			&stakeA, &stakeB, &capital, &gtd, &o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		o.Kind = domain.OpportunityKind(kind)
		o.Favored = domain.Platform(favored)
		o.Basis = domain.MatchBasis(basis)
		if err := errors.Join(json.Unmarshal(legA, &o.LegA), json.Unmarshal(legB, &o.LegB)); err != nil {
			return nil, fmt.Errorf("unmarshal legs %s: %w", o.ID, err)
		}
		if stakeA != nil && stakeB != nil && capital != nil && gtd != nil {
			al.Allocation = &domain.Allocation{
				StakeA:           *stakeA,
				StakeB:           *stakeB,
				TotalCapital:     *capital,
				GuaranteedProfit: *gtd,
			}
		}
		alerts = append(alerts, al)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return alerts, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
