package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

func TestQuietHoursActive(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 5, 1, h, 30, 0, 0, time.UTC) }
	tests := []struct {
		name string
		q    QuietHours
		hour int
		want bool
	}{
		{"disabled", QuietHours{StartHour: 0, EndHour: 23}, 5, false},
		{"same day inside", QuietHours{Enabled: true, StartHour: 1, EndHour: 6}, 3, true},
		{"same day end excluded", QuietHours{Enabled: true, StartHour: 1, EndHour: 6}, 6, false},
		{"wrap before midnight", QuietHours{Enabled: true, StartHour: 22, EndHour: 7}, 23, true},
		{"wrap after midnight", QuietHours{Enabled: true, StartHour: 22, EndHour: 7}, 2, true},
		{"wrap outside", QuietHours{Enabled: true, StartHour: 22, EndHour: 7}, 12, false},
		{"empty window", QuietHours{Enabled: true, StartHour: 4, EndHour: 4}, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Active(at(tt.hour)); got != tt.want {
				t.Errorf("Active(%02d:30) = %v, want %v", tt.hour, got, tt.want)
			}
		})
	}
}

func sampleAlert() domain.Alert {
	return domain.Alert{
		Opportunity: domain.Opportunity{
			Kind:      domain.Arbitrage,
			MarginPct: 4.7619,
			LegA:      domain.Leg{Platform: domain.ExchangeA, EventTitle: "Lakers vs Warriors", Outcome: "Lakers", Probability: 0.4, URL: "https://a.example/lal"},
			LegB:      domain.Leg{Platform: domain.ExchangeB, EventTitle: "LA Lakers - GS Warriors", Outcome: "Golden State Warriors", Probability: 1 / 2.2},
		},
		Allocation: &domain.Allocation{StakeA: 2340.43, StakeB: 2659.57, TotalCapital: 5000, GuaranteedProfit: 851.06},
	}
}

func TestFormatterAlert(t *testing.T) {
	f := Formatter{Names: map[domain.Platform]string{domain.ExchangeA: "Polymarket", domain.ExchangeB: "Cloudbet"}}
	title, body := f.Alert(sampleAlert())

	if title != "ARBITRAGE FOUND (4.76%)" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{
		"*Market:* Lakers vs Warriors",
		"*Polymarket:*\nLakers @ 2.50 - $2340.43\nhttps://a.example/lal",
		"*Cloudbet:*\nGolden State Warriors @ 2.20 - $2659.57",
		"*Total Invested:* $5000.00",
		"*Guaranteed Profit:* $851.06",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestFormatterValueEdge(t *testing.T) {
	a := domain.Alert{Opportunity: domain.Opportunity{
		Kind:      domain.ValueEdge,
		MarginPct: 10,
		Favored:   domain.ExchangeB,
		LegA:      domain.Leg{Platform: domain.ExchangeA, EventTitle: "Final", Outcome: "Yes", Probability: 0.6},
		LegB:      domain.Leg{Platform: domain.ExchangeB, Outcome: "Yes", Probability: 0.5, URL: "https://b.example/1"},
	}}
	title, body := Formatter{}.Alert(a)
	if title != "VALUE EDGE (10.00%)" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(body, "*Better price:* Exchange B\nhttps://b.example/1") {
		t.Errorf("body = %s", body)
	}
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return "recording" }

func TestNotifierFiltersAndQuietHours(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventArbitrage}, QuietHours{Enabled: true, StartHour: 22, EndHour: 7}, Formatter{}, logger)

	n.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	if err := n.Alert(ctx, sampleAlert()); err != nil {
		t.Fatal(err)
	}
	if err := n.CycleFailed(ctx, domain.CycleReport{ID: "c1", Error: "boom"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.titles) != 1 {
		t.Fatalf("sent %v, want only the arbitrage", rec.titles)
	}

	n.now = func() time.Time { return time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC) }
	if err := n.Alert(ctx, sampleAlert()); err != nil {
		t.Fatal(err)
	}
	if len(rec.titles) != 1 {
		t.Errorf("alert sent during quiet hours")
	}
}

func TestNotifierCollectsSenderErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bad := &recordingSender{err: errors.New("down")}
	good := &recordingSender{}
	n := NewNotifier([]Sender{bad, good}, nil, QuietHours{}, Formatter{}, logger)

	err := n.Notify(context.Background(), EventCycleFailed, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Errorf("err = %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("a failing sender stopped the others")
	}
}

func TestTelegramRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["chat_id"] != "42" || payload["parse_mode"] != "Markdown" {
			t.Errorf("payload = %v", payload)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42", 3)
	s.baseURL = srv.URL
	s.backoff = time.Millisecond
	if err := s.Send(context.Background(), "title", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestTelegramDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42", 3)
	s.baseURL = srv.URL
	s.backoff = time.Millisecond
	err := s.Send(context.Background(), "title", "body")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDiscordContent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["content"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), "T", "*Market:* x"); err != nil {
		t.Fatal(err)
	}
	if got != "**T**\n**Market:** x" {
		t.Errorf("content = %q", got)
	}
}
