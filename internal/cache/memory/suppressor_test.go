package memory

import (
	"context"
	"testing"
	"time"
)

func TestSuppressorRetention(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSuppressor(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{0, true},
		{time.Minute, false},
		{58 * time.Minute, false},
		{time.Minute, true},
		{time.Second, false},
	}
	for i, st := range steps {
		now = now.Add(st.advance)
		got, err := s.FirstSeen(ctx, "fp")
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != st.want {
			t.Errorf("step %d: FirstSeen = %v, want %v", i, got, st.want)
		}
	}
}

func TestSuppressorCleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSuppressor(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = s.FirstSeen(ctx, "old")
	now = now.Add(2 * time.Minute)
	_, _ = s.FirstSeen(ctx, "new")

	if removed := s.Cleanup(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
