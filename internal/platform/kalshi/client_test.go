package kalshi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchQuotesCursor(t *testing.T) {
	var cursors []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "open" {
			t.Errorf("status = %q", q.Get("status"))
		}
		cursors = append(cursors, q.Get("cursor"))
		if q.Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"markets":[{"ticker":"KXNBA-LAL","event_ticker":"KXNBA","title":"Will the Lakers win?","yes_ask":42,"no_ask":60,"close_time":"2026-05-02T04:00:00Z"}],"cursor":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"markets":[{"ticker":"KXNBA-GSW","event_ticker":"KXNBA","title":"Will the Warriors win?","yes_ask_dollars":"0.5600","no_ask_dollars":"0.4600"}],"cursor":""}`))
	})

	quotes, err := c.FetchQuotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cursors) != 2 || cursors[1] != "p2" {
		t.Fatalf("cursors = %v", cursors)
	}
	if len(quotes) != 4 {
		t.Fatalf("got %d quotes, want 4", len(quotes))
	}
	if quotes[0].Outcome != "Yes" || quotes[0].Price != 0.42 || quotes[1].Price != 0.60 {
		t.Errorf("cents not converted: %+v %+v", quotes[0], quotes[1])
	}
	if quotes[2].Price != 0.56 || quotes[3].Price != 0.46 {
		t.Errorf("dollar strings not used: %+v %+v", quotes[2], quotes[3])
	}
	if quotes[0].Complementary {
		t.Error("independent asks marked complementary")
	}
	if quotes[0].URL != "https://kalshi.com/markets/kxnba" {
		t.Errorf("url = %s", quotes[0].URL)
	}
}

func TestSignedRequests(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("KALSHI-ACCESS-SIGNATURE") == "" || r.Header.Get("KALSHI-ACCESS-TIMESTAMP") == "" {
			t.Error("missing signature headers")
		}
		_, _ = w.Write([]byte(`{"markets":[]}`))
	})
	if err := c.SetRSAPrivateKey(pemBytes); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchQuotes(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestStatusMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"too_many_requests","message":"slow down"}}`))
	})
	if _, err := c.FetchQuotes(context.Background()); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("err = %v", err)
	}
}
