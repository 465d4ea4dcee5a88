package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// CycleStore implements domain.CycleStore.
type CycleStore struct {
	pool *pgxpool.Pool
}

// NewCycleStore creates a new CycleStore backed by the given pool.
func NewCycleStore(pool *pgxpool.Pool) *CycleStore {
	return &CycleStore{pool: pool}
}

// Insert records one cycle report.
func (s *CycleStore) Insert(ctx context.Context, r domain.CycleReport) error {
	const query = `
		INSERT INTO cycles (
			id, status, started_at, duration_ms, quotes_a, quotes_b, rejected,
			events_a, events_b, matches, opportunities, suppressed, allocated,
			allocation_errors, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			duration_ms = EXCLUDED.duration_ms,
			error = EXCLUDED.error`

	_, err := s.pool.Exec(ctx, query,
		r.ID, string(r.Status), r.StartedAt, millis(r.Duration), r.QuotesA, r.QuotesB, r.Rejected,
		r.EventsA, r.EventsB, r.Matches, r.Opportunities, r.Suppressed, r.Allocated,
		r.AllocationErrs, r.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert cycle %s: %w", r.ID, err)
	}
	return nil
}

// ListRecent returns the latest cycle reports, newest first.
func (s *CycleStore) ListRecent(ctx context.Context, limit int) ([]domain.CycleReport, error) {
	query := `SELECT id, status, started_at, duration_ms, quotes_a, quotes_b, rejected,
		events_a, events_b, matches, opportunities, suppressed, allocated,
		allocation_errors, error
		FROM cycles ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	defer rows.Close()

	var reports []domain.CycleReport
	for rows.Next() {
		var r domain.CycleReport
		var status string
		var durationMs int64
		if err := rows.Scan(
			&r.ID, &status, &r.StartedAt, &durationMs, &r.QuotesA, &r.QuotesB, &r.Rejected,
			&r.EventsA, &r.EventsB, &r.Matches, &r.Opportunities, &r.Suppressed, &r.Allocated,
			&r.AllocationErrs, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan cycle: %w", err)
		}
		r.Status = domain.CycleStatus(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list cycles rows: %w", err)
	}
	return reports, nil
}

var _ domain.CycleStore = (*CycleStore)(nil)
