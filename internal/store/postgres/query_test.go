package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

func TestFilterBuild(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		kind     domain.OpportunityKind
		opts     domain.ListOpts
		want     string
		wantArgs int
	}{
		{
			name: "no filters",
			opts: domain.ListOpts{},
			want: "SELECT x FROM t ORDER BY detected_at DESC",
		},
		{
			name:     "kind since and paging",
			kind:     domain.Arbitrage,
			opts:     domain.ListOpts{Since: &since, Limit: 50, Offset: 100},
			want:     "SELECT x FROM t WHERE kind = $1 AND detected_at >= $2 ORDER BY detected_at DESC LIMIT $3 OFFSET $4",
			wantArgs: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f filter
			if tt.kind != "" {
				f.add("kind = $%d", string(tt.kind))
			}
			got, args := f.build("SELECT x FROM t", "detected_at", tt.opts)
			if got != tt.want {
				t.Errorf("query = %q\nwant    %q", got, tt.want)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", Database: "crossodds", User: "u", Password: "p"})
	want := "postgres://u:p@db:5432/crossodds?sslmode=disable"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
	if got := DSN(ClientConfig{DSN: "postgres://x"}); got != "postgres://x" {
		t.Errorf("explicit DSN not preferred: %q", got)
	}
}
