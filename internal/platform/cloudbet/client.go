// Package cloudbet fetches fixed-odds selections from the Cloudbet Feed API
// as raw quotes.
package cloudbet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// DefaultBaseURL is the public Feed API root.
const DefaultBaseURL = "https://sports-api.cloudbet.com/pub"

const eventURL = "https://www.cloudbet.com/en/sports/event/"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// Sports limits fetching to these sport keys; empty fetches every sport
	// with events.
	Sports []string
	// MarketSuffixes keeps only markets whose key ends with one of these,
	// e.g. "match_odds" or "moneyline". Empty keeps every market.
	MarketSuffixes []string
	Lookahead      time.Duration
	Timeout        time.Duration
	// Limiter paces per-sport requests when set.
	Limiter        domain.RateLimiter
	RequestsPerSec int
}

// Client is the REST client for the Cloudbet Feed API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a new Cloudbet client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 7 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "cloudbet")),
		now:        time.Now,
	}
}

// Name implements domain.QuoteSource.
func (c *Client) Name() string { return "cloudbet" }

// FetchQuotes returns every open selection of events starting within the
// lookahead window. A sport that fails to load is logged and skipped unless
// every sport fails.
func (c *Client) FetchQuotes(ctx context.Context) ([]domain.RawQuote, error) {
	sports := c.cfg.Sports
	if len(sports) == 0 {
		var err error
		if sports, err = c.ListSports(ctx); err != nil {
			return nil, err
		}
	}

	now := c.now().UTC()
	var (
		quotes []domain.RawQuote
		failed int
		last   error
	)
	for _, sport := range sports {
		resp, err := c.GetEvents(ctx, sport, now, now.Add(c.cfg.Lookahead))
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrUnauthorized) {
				return nil, err
			}
			failed++
			last = err
			c.logger.WarnContext(ctx, "sport fetch failed",
				slog.String("sport", sport),
				slog.String("error", err.Error()),
			)
			continue
		}
		quotes = append(quotes, c.rawQuotes(resp, now)...)
	}
	if len(sports) > 0 && failed == len(sports) {
		return nil, fmt.Errorf("cloudbet: every sport failed: %w", last)
	}

	c.logger.InfoContext(ctx, "fetched cloudbet selections",
		slog.Int("sports", len(sports)),
		slog.Int("failed", failed),
		slog.Int("quotes", len(quotes)),
	)
	return quotes, nil
}

// ListSports returns the keys of sports that currently have events.
func (c *Client) ListSports(ctx context.Context) ([]string, error) {
	body, err := c.doGet(ctx, "/v2/odds/sports", nil)
	if err != nil {
		return nil, fmt.Errorf("cloudbet: list sports: %w", err)
	}
	var resp sportsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cloudbet: decode sports: %w", err)
	}
	keys := make([]string, 0, len(resp.Sports))
	for _, s := range resp.Sports {
		if s.Key != "" && s.EventCount > 0 {
			keys = append(keys, s.Key)
		}
	}
	return keys, nil
}

// GetEvents returns the competitions and events of one sport between from
// and to.
func (c *Client) GetEvents(ctx context.Context, sport string, from, to time.Time) (eventsResponse, error) {
	params := url.Values{}
	params.Set("sport", sport)
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	body, err := c.doGet(ctx, "/v2/odds/events", params)
	if err != nil {
		return eventsResponse{}, fmt.Errorf("cloudbet: get events %s: %w", sport, err)
	}
	var resp eventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return eventsResponse{}, fmt.Errorf("cloudbet: decode events %s: %w", sport, err)
	}
	return resp, nil
}

// rawQuotes flattens one sport. Each (event, market) pair is one
// occurrence; home/away selections take the competitor names.
func (c *Client) rawQuotes(resp eventsResponse, now time.Time) []domain.RawQuote {
	var out []domain.RawQuote
	for _, comp := range resp.Competitions {
		for _, ev := range comp.Events {
			if s := strings.ToUpper(ev.Status); s != "" && s != "TRADING" && s != "TRADING_LIVE" {
				continue
			}
			// An unparseable cutoff keeps the event with an unknown start.
			start, err := time.Parse(time.RFC3339, ev.CutoffTime)
			if err != nil {
				start = time.Time{}
			} else if start.Before(now) || start.After(now.Add(c.cfg.Lookahead)) {
				continue
			}

			var participants []string
			names := map[string]string{}
			for _, side := range []struct {
				role string
				team *apiCompetitor
			}{{"home", ev.Home}, {"away", ev.Away}} {
				if side.team == nil || side.team.Name == "" {
					continue
				}
				names[side.role] = side.team.Name
				participants = append(participants, side.team.Name)
			}

			marketKeys := make([]string, 0, len(ev.Markets))
			for k := range ev.Markets {
				if c.keepMarket(k) {
					marketKeys = append(marketKeys, k)
				}
			}
			sort.Strings(marketKeys)

			for _, mk := range marketKeys {
				sub, ok := ev.Markets[mk].fullTime()
				if !ok {
					continue
				}
				key := strconv.FormatInt(ev.ID, 10) + "/" + mk
				for _, sel := range sub.Selections {
					if !sel.open() || sel.Params != "" {
						continue
					}
					label := sel.Outcome
					if n, ok := names[label]; ok {
						label = n
					} else {
						label = competitorName(label)
					}
					out = append(out, domain.RawQuote{
						Source:       "cloudbet",
						EventKey:     key,
						EventTitle:   ev.Name,
						Outcome:      label,
						Participants: participants,
						Category:     resp.Name,
						EventTime:    start,
						URL:          eventURL + strconv.FormatInt(ev.ID, 10),
						DecimalOdds:  sel.Price,
						ObservedAt:   now,
					})
				}
			}
		}
	}
	return out
}

func (c *Client) keepMarket(key string) bool {
	if len(c.cfg.MarketSuffixes) == 0 {
		return true
	}
	for _, s := range c.cfg.MarketSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// doGet sends an authenticated GET, waiting on the rate limiter first.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.cfg.Limiter != nil && c.cfg.RequestsPerSec > 0 {
		if err := c.cfg.Limiter.Wait(ctx, "fetch:cloudbet", c.cfg.RequestsPerSec, time.Second); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	fullURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx HTTP status codes to domain errors. A 403
// means the key lacks odds permission.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := string(body)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

var _ domain.QuoteSource = (*Client)(nil)
