package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// filter accumulates WHERE clauses and positional arguments.
type filter struct {
	where []string
	args  []any
}

func (f *filter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.where = append(f.where, fmt.Sprintf(clause, len(f.args)))
}

// build renders base + WHERE + ORDER BY + LIMIT/OFFSET for opts. timeCol is
// the column Since/Until apply to.
func (f *filter) build(base, timeCol string, opts domain.ListOpts) (string, []any) {
	if opts.Since != nil {
		f.add(timeCol+" >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		f.add(timeCol+" <= $%d", *opts.Until)
	}

	var b strings.Builder
	b.WriteString(base)
	if len(f.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(f.where, " AND "))
	}
	b.WriteString(" ORDER BY " + timeCol + " DESC")
	if opts.Limit > 0 {
		f.args = append(f.args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(f.args))
	}
	if opts.Offset > 0 {
		f.args = append(f.args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(f.args))
	}
	return b.String(), f.args
}

func nullableFloat(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func millis(d time.Duration) int64 { return d.Milliseconds() }
