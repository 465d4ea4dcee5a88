package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Archiver moves opportunities past the retention window to cold storage.
type Archiver struct {
	blobArchiver  domain.Archiver
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewArchiver creates a new Archiver.
func NewArchiver(blobArchiver domain.Archiver, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:  blobArchiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
		now:           time.Now,
	}
}

// Run executes a single archive run over everything detected more than
// retentionDays ago.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := a.now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	archived, err := a.blobArchiver.ArchiveOpportunities(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive opportunities before %v: %w", cutoff, err)
	}

	a.logger.Info("archive run complete", slog.Int64("opportunities_archived", archived))
	return nil
}

// RunCron runs the archiver on a five-field cron schedule
// ("minute hour day-of-month month day-of-week", evaluated in UTC) until
// the context is cancelled. A failed run is logged and the schedule goes on.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	schedule, err := parseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("pipeline: archive cron %q: %w", cronExpr, err)
	}
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := schedule.next(a.now().UTC())
		if err != nil {
			return fmt.Errorf("pipeline: archive cron %q: %w", cronExpr, err)
		}

		wait := next.Sub(a.now())
		a.logger.Debug("archiver waiting for next trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// cronField matches one field of a cron expression.
type cronField struct {
	wildcard bool
	values   map[int]bool
}

func (f cronField) matches(val int) bool {
	return f.wildcard || f.values[val]
}

// parseCronField parses "*", "5", "1,15", "1-5" and "*/15" style fields,
// bounded to [lo, hi].
func parseCronField(field string, lo, hi int) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	values := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		step := 1
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return cronField{}, fmt.Errorf("invalid step %q", s)
			}
			step, part = n, base
		}

		from, to := lo, hi
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var errA, errB error
			from, errA = strconv.Atoi(a)
			to, errB = strconv.Atoi(b)
			if errA != nil || errB != nil {
				return cronField{}, fmt.Errorf("invalid range %q", part)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return cronField{}, fmt.Errorf("invalid value %q: %w", part, err)
			}
			from, to = v, v
		}
		if from < lo || to > hi || from > to {
			return cronField{}, fmt.Errorf("%q outside %d-%d", part, lo, hi)
		}
		for v := from; v <= to; v += step {
			values[v] = true
		}
	}
	return cronField{values: values}, nil
}

type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	bounds := [5]struct {
		name   string
		lo, hi int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 6},
	}
	var parsed [5]cronField
	for i, b := range bounds {
		f, err := parseCronField(fields[i], b.lo, b.hi)
		if err != nil {
			return parsedCron{}, fmt.Errorf("parsing %s field: %w", b.name, err)
		}
		parsed[i] = f
	}

	return parsedCron{
		minute:     parsed[0],
		hour:       parsed[1],
		dayOfMonth: parsed[2],
		month:      parsed[3],
		dayOfWeek:  parsed[4],
	}, nil
}

// next returns the first minute strictly after t that matches, searching up
// to one year ahead.
func (c parsedCron) next(after time.Time) (time.Time, error) {
	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(366 * 24 * time.Hour)

	for candidate.Before(limit) {
		if c.matchesTime(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching time within one year")
}

// nextCronTime parses cronExpr and returns its next trigger after 'after'.
func nextCronTime(cronExpr string, after time.Time) (time.Time, error) {
	c, err := parseCron(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return c.next(after)
}
