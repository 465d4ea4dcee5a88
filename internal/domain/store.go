package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Kind   OpportunityKind // optional filter for opportunity listings
}

// OpportunityStore persists handed-off opportunities with their allocation.
type OpportunityStore interface {
	Insert(ctx context.Context, alert Alert) error
	GetByID(ctx context.Context, id string) (Alert, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Alert, error)
	ListBefore(ctx context.Context, before time.Time) ([]Alert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CycleStore persists per-cycle reports.
type CycleStore interface {
	Insert(ctx context.Context, report CycleReport) error
	ListRecent(ctx context.Context, limit int) ([]CycleReport, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore provides an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
