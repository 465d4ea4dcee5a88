package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

const eventsPage = `[
  {
    "id": "100",
    "title": "NBA: Lakers vs Warriors",
    "slug": "nba-lal-gsw",
    "active": true,
    "closed": false,
    "startDate": "2026-05-01T00:00:00Z",
    "tags": [{"label": "Basketball", "slug": "basketball"}],
    "markets": [
      {
        "id": "m1",
        "question": "Lakers vs. Warriors",
        "active": "true",
        "closed": false,
        "outcomes": "[\"Lakers\", \"Warriors\"]",
        "outcomePrices": "[\"0.40\", \"0.61\"]",
        "gameStartTime": "2026-05-02 02:00:00+00"
      },
      {
        "id": "m2",
        "question": "Will LeBron James score 30+ points?",
        "active": true,
        "closed": false,
        "outcomes": "[\"Yes\", \"No\"]",
        "outcomePrices": "[\"0.30\", \"0.70\"]"
      },
      {
        "id": "m3",
        "question": "Closed market",
        "active": true,
        "closed": true,
        "outcomes": "[\"Yes\", \"No\"]",
        "outcomePrices": "[\"0.5\", \"0.5\"]"
      }
    ]
  }
]`

func newTestClient(t *testing.T, h http.HandlerFunc) *GammaClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGammaClient(GammaConfig{BaseURL: srv.URL, PageSize: 10}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchQuotes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/events" || q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if q.Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(eventsPage))
	})

	quotes, err := c.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(quotes) != 4 {
		t.Fatalf("got %d quotes, want 4 (closed market skipped)", len(quotes))
	}

	lakers := quotes[0]
	if lakers.EventKey != "m1" || lakers.Outcome != "Lakers" || lakers.Price != 0.40 {
		t.Errorf("first quote = %+v", lakers)
	}
	if len(lakers.Participants) != 2 || lakers.Category != "Basketball" {
		t.Errorf("participants/category = %v/%q", lakers.Participants, lakers.Category)
	}
	if want := time.Date(2026, 5, 2, 2, 0, 0, 0, time.UTC); !lakers.EventTime.Equal(want) {
		t.Errorf("event time = %v, want %v", lakers.EventTime, want)
	}
	if lakers.URL != "https://polymarket.com/event/nba-lal-gsw" {
		t.Errorf("url = %s", lakers.URL)
	}
	if lakers.Complementary {
		t.Error("moneyline marked complementary")
	}

	yes := quotes[2]
	if yes.Outcome != "Yes" || !yes.Complementary || len(yes.Participants) != 0 {
		t.Errorf("binary quote = %+v", yes)
	}
	if !yes.EventTime.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("binary event time should fall back to the event start, got %v", yes.EventTime)
	}
}

func TestFetchQuotesPaging(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("offset") == "0" {
			// A full page forces a second request.
			fmt.Fprint(w, "[")
			for i := 0; i < 10; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id":"%d","title":"e","markets":[]}`, i)
			}
			fmt.Fprint(w, "]")
			return
		}
		fmt.Fprint(w, `[]`)
	})
	if _, err := c.FetchQuotes(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("requests = %d, want 2", calls)
	}
}

func TestFetchQuotesStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			if _, err := c.FetchQuotes(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEventCategoryPrefersKnownSport(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"umbrella tag first", []string{"Sports", "NBA", "Playoffs"}, "NBA"},
		{"single sport", []string{"Basketball"}, "Basketball"},
		{"unknown sport", []string{"Cricket"}, "Cricket"},
		{"no tags", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := APIEvent{}
			for _, l := range tt.tags {
				e.Tags = append(e.Tags, APITag{Label: l})
			}
			if got := e.category(); got != tt.want {
				t.Errorf("category = %q, want %q", got, tt.want)
			}
		})
	}
}
