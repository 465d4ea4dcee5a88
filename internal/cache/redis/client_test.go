package redis

import (
	"testing"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

func TestKey(t *testing.T) {
	c := NewFromRedis(nil, "crossodds:")

	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"lock", "scan-cycle"}, "crossodds:lock:scan-cycle"},
		{[]string{"seen", "arb|a:1|b:2"}, "crossodds:seen:arb|a:1|b:2"},
		{[]string{domain.OpportunityStream}, "crossodds:opportunities"},
		{[]string{"status", "latest"}, "crossodds:status:latest"},
	}
	for _, tt := range tests {
		if got := c.Key(tt.parts...); got != tt.want {
			t.Errorf("Key(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}

	if got := NewFromRedis(nil, "").Key("ch:cycle"); got != "ch:cycle" {
		t.Errorf("unprefixed key = %q", got)
	}
}

func TestHasPattern(t *testing.T) {
	tests := []struct {
		channel string
		want    bool
	}{
		{domain.OpportunityChannel, false},
		{domain.CycleChannel, false},
		{"ch:*", true},
		{"ch:cycle?", true},
		{"ch:[oc]*", true},
	}
	for _, tt := range tests {
		if got := hasPattern(tt.channel); got != tt.want {
			t.Errorf("hasPattern(%q) = %v, want %v", tt.channel, got, tt.want)
		}
	}
}
