package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

const statusTTL = 24 * time.Hour

// StatusCache implements domain.StatusCache.
//
// Key schema:
//
//	status:latest  - hash with field "data" (JSON CycleReport) and "at" (unix seconds)
//	status:history - list of cycle IDs, newest first, capped at 100
type StatusCache struct {
	c *Client
}

// NewStatusCache creates a StatusCache backed by the given Client.
func NewStatusCache(c *Client) *StatusCache {
	return &StatusCache{c: c}
}

// SetLatest stores report as the most recent cycle.
func (sc *StatusCache) SetLatest(ctx context.Context, report domain.CycleReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal cycle %s: %w", report.ID, err)
	}

	latest := sc.c.Key("status", "latest")
	history := sc.c.Key("status", "history")

	pipe := sc.c.rdb.TxPipeline()
	pipe.HSet(ctx, latest, "data", data, "at", report.StartedAt.Unix())
	pipe.Expire(ctx, latest, statusTTL)
	pipe.LPush(ctx, history, report.ID)
	pipe.LTrim(ctx, history, 0, 99)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set latest cycle %s: %w", report.ID, err)
	}
	return nil
}

// Latest returns the most recent cycle report, or domain.ErrNotFound when
// none was stored within the TTL.
func (sc *StatusCache) Latest(ctx context.Context) (domain.CycleReport, error) {
	data, err := sc.c.rdb.HGet(ctx, sc.c.Key("status", "latest"), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CycleReport{}, domain.ErrNotFound
		}
		return domain.CycleReport{}, fmt.Errorf("redis: get latest cycle: %w", err)
	}

	var report domain.CycleReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.CycleReport{}, fmt.Errorf("redis: unmarshal latest cycle: %w", err)
	}
	return report, nil
}

var _ domain.StatusCache = (*StatusCache)(nil)
