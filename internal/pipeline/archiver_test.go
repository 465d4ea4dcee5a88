package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNextCronTime(t *testing.T) {
	base := time.Date(2026, 5, 1, 2, 30, 15, 0, time.UTC) // a Friday

	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 5, 1, 2, 45, 0, 0, time.UTC)},
		{"0 1 * * *", time.Date(2026, 5, 2, 1, 0, 0, 0, time.UTC)},
		{"30 4 1,15 * *", time.Date(2026, 5, 15, 4, 30, 0, 0, time.UTC)},
		{"0 9 * * 1-5", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		{"0 9 * * 0", time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, base)
			if err != nil {
				t.Fatalf("nextCronTime: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCronRejects(t *testing.T) {
	for _, expr := range []string{"", "0 3 * *", "60 * * * *", "* 24 * * *", "x * * * *", "*/0 * * * *", "5-2 * * * *"} {
		if _, err := parseCron(expr); err == nil {
			t.Errorf("parseCron(%q) accepted", expr)
		}
	}
	if _, err := nextCronTime("0 0 30 2 *", time.Now()); err == nil {
		t.Error("February 30th should never match")
	}
}

type stubArchiver struct {
	before time.Time
	err    error
}

func (s *stubArchiver) ArchiveOpportunities(_ context.Context, before time.Time) (int64, error) {
	s.before = before
	return 3, s.err
}

func TestArchiverRunCutoff(t *testing.T) {
	now := time.Date(2026, 5, 31, 3, 0, 0, 0, time.UTC)
	stub := &stubArchiver{}
	a := NewArchiver(stub, 30, discard())
	a.now = func() time.Time { return now }

	if err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if want := now.AddDate(0, 0, -30); !stub.before.Equal(want) {
		t.Errorf("cutoff = %v, want %v", stub.before, want)
	}

	stub.err = errors.New("bucket missing")
	if err := a.Run(context.Background()); !errors.Is(err, stub.err) {
		t.Errorf("err = %v", err)
	}
}

func TestArchiverRunCronRejectsBadExpression(t *testing.T) {
	a := NewArchiver(&stubArchiver{}, 30, discard())
	if err := a.RunCron(context.Background(), "every night"); err == nil {
		t.Error("expected an error")
	}
}

func TestOrchestratorStopsCleanly(t *testing.T) {
	s := newScanner(lakersA(), lakersB(), nil, &recorder{}, &alerter{})
	o := NewOrchestrator(s, NewArchiver(&stubArchiver{}, 30, discard()), nil, time.Hour, "0 3 * * *", discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
	}
}
