// Package memory holds in-process implementations of the cache interfaces
// for single-instance runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Suppressor remembers fingerprints for a retention window. It is safe for
// concurrent use.
type Suppressor struct {
	seen      map[string]time.Time // fingerprint -> first reported
	retention time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

// NewSuppressor creates a Suppressor that treats a fingerprint as a repeat
// while it was first seen less than retention ago.
func NewSuppressor(retention time.Duration) *Suppressor {
	return &Suppressor{
		seen:      make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// FirstSeen records fingerprint if it is new or expired and reports whether
// it did so.
func (s *Suppressor) FirstSeen(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.seen[fingerprint]; ok && now.Sub(at) < s.retention {
		return false, nil
	}
	s.seen[fingerprint] = now
	return true, nil
}

// Cleanup drops expired fingerprints. Call it periodically.
func (s *Suppressor) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for fp, at := range s.seen {
		if now.Sub(at) >= s.retention {
			delete(s.seen, fp)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked fingerprints.
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

var _ domain.DuplicateSuppressor = (*Suppressor)(nil)
