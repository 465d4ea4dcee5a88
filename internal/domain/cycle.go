package domain

import "time"

// CycleStatus summarises how a polling cycle ended.
type CycleStatus string

const (
	CycleOK      CycleStatus = "ok"
	CycleEmpty   CycleStatus = "empty"   // completed with zero matches or opportunities
	CycleFailed  CycleStatus = "failed"
	CycleSkipped CycleStatus = "skipped" // another instance held the cycle lock
)

// CycleReport is the per-cycle summary persisted and shown on the dashboard.
type CycleReport struct {
	ID             string        `json:"id"`
	Status         CycleStatus   `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	QuotesA        int           `json:"quotes_a"`
	QuotesB        int           `json:"quotes_b"`
	Rejected       int           `json:"rejected"`
	EventsA        int           `json:"events_a"`
	EventsB        int           `json:"events_b"`
	Matches        int           `json:"matches"`
	Opportunities  int           `json:"opportunities"`
	Suppressed     int           `json:"suppressed"`
	Allocated      int           `json:"allocated"`
	AllocationErrs int           `json:"allocation_errors"`
	Error          string        `json:"error,omitempty"`
}
