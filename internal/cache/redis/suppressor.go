package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Suppressor implements domain.DuplicateSuppressor with one SET NX EX key per
// fingerprint. Expiry of the key ends the retention window.
type Suppressor struct {
	c         *Client
	retention time.Duration
}

// NewSuppressor creates a Suppressor with the given retention window.
func NewSuppressor(c *Client, retention time.Duration) *Suppressor {
	return &Suppressor{c: c, retention: retention}
}

// FirstSeen records fingerprint and reports whether it was new.
func (s *Suppressor) FirstSeen(ctx context.Context, fingerprint string) (bool, error) {
	ok, err := s.c.rdb.SetNX(ctx, s.c.Key("seen", fingerprint), time.Now().UTC().Format(time.RFC3339), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("redis: record fingerprint %s: %w", fingerprint, err)
	}
	return ok, nil
}

var _ domain.DuplicateSuppressor = (*Suppressor)(nil)
