package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/server"
	"github.com/alanyoungcy/crossodds/internal/server/handler"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStore struct {
	alerts   []domain.Alert
	cycles   []domain.CycleReport
	lastOpts domain.ListOpts
}

func (f *fakeStore) GetByID(_ context.Context, id string) (domain.Alert, error) {
	for _, a := range f.alerts {
		if a.Opportunity.ID == id {
			return a, nil
		}
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (f *fakeStore) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	f.lastOpts = opts
	var out []domain.Alert
	for _, a := range f.alerts {
		if opts.Kind == "" || a.Opportunity.Kind == opts.Kind {
			out = append(out, a)
		}
	}
	return out, nil
}

type cycleList []domain.CycleReport

func (c cycleList) ListRecent(_ context.Context, limit int) ([]domain.CycleReport, error) {
	return c[:min(limit, len(c))], nil
}

type latest struct{ report *domain.CycleReport }

func (l latest) Latest(context.Context) (domain.CycleReport, error) {
	if l.report == nil {
		return domain.CycleReport{}, domain.ErrNotFound
	}
	return *l.report, nil
}

type blobs map[string]string

func (b blobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := b[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (b blobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for p, body := range b {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p, Size: int64(len(body))})
		}
	}
	return out, nil
}

type countingLimiter struct{ calls int }

func (c *countingLimiter) Allow(_ context.Context, _ string, limit int, _ time.Duration) (bool, error) {
	c.calls++
	return c.calls <= limit, nil
}

func (c *countingLimiter) Wait(context.Context, string, int, time.Duration) error { return nil }

func newTestHandler(t *testing.T, cfg server.Config, limiter domain.RateLimiter, health map[string]handler.Pinger) (http.Handler, *fakeStore) {
	t.Helper()
	store := &fakeStore{alerts: []domain.Alert{
		{Opportunity: domain.Opportunity{ID: "arb-1", Kind: domain.Arbitrage, MarginPct: 4.2}},
		{Opportunity: domain.Opportunity{ID: "ve-1", Kind: domain.ValueEdge}},
	}}
	report := domain.CycleReport{ID: "c-1", Status: domain.CycleOK, Opportunities: 2}
	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(health, discard),
		Status:        handler.NewStatusHandler("full", latest{&report}, discard),
		Opportunities: handler.NewOpportunityHandler(store, discard),
		Cycles:        handler.NewCycleHandler(cycleList{report}, discard),
		Archive: handler.NewArchiveHandler(blobs{
			"opportunities/2026/05/01/1714521600.jsonl": `{"opportunity":{"id":"old"}}` + "\n",
		}, "opportunities", discard),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "# metrics\n") }),
	}
	return server.NewHandler(cfg, handlers, nil, limiter, discard), store
}

func do(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestRoutes(t *testing.T) {
	h, store := newTestHandler(t, server.Config{}, nil, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/health", http.StatusOK},
		{"/api/status", http.StatusOK},
		{"/api/opportunities", http.StatusOK},
		{"/api/opportunities/arb-1", http.StatusOK},
		{"/api/opportunities/missing", http.StatusNotFound},
		{"/api/opportunities?kind=bogus", http.StatusBadRequest},
		{"/api/opportunities?since=yesterday", http.StatusBadRequest},
		{"/api/cycles", http.StatusOK},
		{"/api/archive", http.StatusOK},
		{"/api/archive/opportunities/2026/05/01/1714521600.jsonl", http.StatusOK},
		{"/api/archive/opportunities/2026/05/02/none.jsonl", http.StatusNotFound},
		{"/api/archive/secrets/key.pem", http.StatusBadRequest},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := do(h, http.MethodGet, tt.target, nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := do(h, http.MethodGet, "/api/opportunities?kind=arbitrage&limit=900&since=2026-05-01T00:00:00Z", nil)
	var list struct {
		Opportunities []domain.Alert `json:"opportunities"`
		Limit         int            `json:"limit"`
	}
	decode(t, rec, &list)
	if len(list.Opportunities) != 1 || list.Opportunities[0].Opportunity.ID != "arb-1" {
		t.Errorf("filtered list = %+v", list.Opportunities)
	}
	if list.Limit != 500 || store.lastOpts.Since == nil {
		t.Errorf("opts = %+v", store.lastOpts)
	}
}

func TestStatusIncludesLastCycle(t *testing.T) {
	h, _ := newTestHandler(t, server.Config{}, nil, nil)
	var body struct {
		Mode      string             `json:"mode"`
		LastCycle domain.CycleReport `json:"last_cycle"`
	}
	decode(t, do(h, http.MethodGet, "/api/status", nil), &body)
	if body.Mode != "full" || body.LastCycle.ID != "c-1" {
		t.Errorf("status = %+v", body)
	}
}

func TestHealthDegraded(t *testing.T) {
	checks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(func(context.Context) error { return nil }),
		"redis":    handler.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"s3":       nil,
	}
	h, _ := newTestHandler(t, server.Config{}, nil, checks)

	rec := do(h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	decode(t, rec, &body)
	if body.Status != "degraded" || body.Dependencies["redis"] != "down" || body.Dependencies["postgres"] != "up" {
		t.Errorf("body = %+v", body)
	}
	if _, ok := body.Dependencies["s3"]; ok {
		t.Error("nil checks should be skipped")
	}
}

func TestAuth(t *testing.T) {
	h, _ := newTestHandler(t, server.Config{APIKey: "s3cret"}, nil, nil)

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"metrics is public", "/metrics", nil, http.StatusOK},
		{"missing token", "/api/opportunities", nil, http.StatusUnauthorized},
		{"wrong token", "/api/opportunities", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"api key header", "/api/opportunities", map[string]string{"X-API-Key": "s3cret"}, http.StatusOK},
		{"bearer", "/api/cycles", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, http.MethodGet, tt.target, tt.header); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{}
	h, _ := newTestHandler(t, server.Config{RateLimit: 2}, limiter, nil)

	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodGet, "/api/cycles", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(h, http.MethodGet, "/api/cycles", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("third request: status %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := server.Config{CORSOrigins: []string{"https://dash.example/"}, CORSMaxAge: 10 * time.Minute}
	h, _ := newTestHandler(t, cfg, nil, nil)

	rec := do(h, http.MethodOptions, "/api/opportunities", map[string]string{"Origin": "https://Dash.example"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":   "https://Dash.example",
		"Access-Control-Allow-Methods":  "GET, OPTIONS",
		"Access-Control-Expose-Headers": "Retry-After",
		"Access-Control-Max-Age":        "600",
		"Vary":                          "Origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key") {
		t.Errorf("allow headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	rec = do(h, http.MethodOptions, "/api/opportunities", map[string]string{"Origin": "https://evil.example"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin allowed")
	}
}

func TestCORSOnRateLimitedResponse(t *testing.T) {
	limiter := &countingLimiter{}
	cfg := server.Config{RateLimit: 1, CORSOrigins: []string{"*"}}
	h, _ := newTestHandler(t, cfg, limiter, nil)
	origin := map[string]string{"Origin": "https://any.example"}

	do(h, http.MethodGet, "/api/cycles", origin)
	rec := do(h, http.MethodGet, "/api/cycles", origin)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://any.example" ||
		rec.Header().Get("Access-Control-Expose-Headers") != "Retry-After" {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Header().Get("Access-Control-Max-Age") != "" {
		t.Error("max age set without configuration")
	}
}
