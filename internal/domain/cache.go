package domain

import (
	"context"
	"time"
)

// DuplicateSuppressor answers whether an opportunity fingerprint was already
// reported within a retention window. FirstSeen records the fingerprint and
// returns true only when it was not seen inside the window.
type DuplicateSuppressor interface {
	FirstSeen(ctx context.Context, fingerprint string) (bool, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Channel and stream names used for opportunity fan-out. Stream entries
// keep detected opportunities replayable for late dashboard clients.
const (
	OpportunityChannel = "ch:opportunity"
	CycleChannel       = "ch:cycle"
	OpportunityStream  = "opportunities"
)

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// StatusCache keeps the latest cycle report where the dashboard process can
// read it.
type StatusCache interface {
	SetLatest(ctx context.Context, report CycleReport) error
	Latest(ctx context.Context) (CycleReport, error)
}
