// Package polymarket fetches binary and moneyline contracts from the
// Polymarket Gamma API as raw quotes.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/normalize"
)

// DefaultBaseURL is the public Gamma API root.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

const eventURL = "https://polymarket.com/event/"

// GammaConfig configures a GammaClient.
type GammaConfig struct {
	BaseURL  string
	PageSize int
	MaxPages int
	// TagSlug restricts discovery to one Gamma tag, e.g. "sports".
	TagSlug string
	Timeout time.Duration
	// Limiter paces page requests when set.
	Limiter        domain.RateLimiter
	RequestsPerSec int
}

// GammaClient is the REST client for the Polymarket Gamma API.
type GammaClient struct {
	cfg        GammaConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewGammaClient creates a new Gamma API client.
func NewGammaClient(cfg GammaConfig, logger *slog.Logger) *GammaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GammaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "polymarket")),
		now:        time.Now,
	}
}

// Name implements domain.QuoteSource.
func (g *GammaClient) Name() string { return "polymarket" }

// FetchQuotes pages through active, open events and flattens every market
// into one raw quote per outcome.
func (g *GammaClient) FetchQuotes(ctx context.Context) ([]domain.RawQuote, error) {
	var quotes []domain.RawQuote
	observed := g.now().UTC()
	events := 0
	for page := 0; page < g.cfg.MaxPages; page++ {
		batch, err := g.GetEvents(ctx, g.cfg.PageSize, page*g.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			quotes = append(quotes, batch[i].RawQuotes(observed)...)
		}
		events += len(batch)
		if len(batch) < g.cfg.PageSize {
			break
		}
	}
	g.logger.InfoContext(ctx, "fetched polymarket events",
		slog.Int("events", events),
		slog.Int("quotes", len(quotes)),
	)
	return quotes, nil
}

// GetEvents returns one page of active, open events.
func (g *GammaClient) GetEvents(ctx context.Context, limit, offset int) ([]APIEvent, error) {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if g.cfg.TagSlug != "" {
		params.Set("tag_slug", g.cfg.TagSlug)
	}

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}
	return events, nil
}

// category picks the first tag naming a known sport, falling back to the
// first tag. Gamma often lists umbrella tags such as "Sports" first.
func (e *APIEvent) category() string {
	for _, t := range e.Tags {
		if normalize.KnownCategory(t.Label) {
			return t.Label
		}
	}
	if len(e.Tags) > 0 {
		return e.Tags[0].Label
	}
	return ""
}

// RawQuotes flattens the event's open markets. Each market is its own
// occurrence keyed by market ID; Yes/No markets are marked complementary
// because both prices come from one order book.
func (e *APIEvent) RawQuotes(observed time.Time) []domain.RawQuote {
	if e.Closed {
		return nil
	}
	category := e.category()
	link := ""
	if e.Slug != "" {
		link = eventURL + e.Slug
	}

	var out []domain.RawQuote
	for _, m := range e.Markets {
		if m.Closed || !bool(m.Active) || len(m.Outcomes) == 0 || len(m.Outcomes) != len(m.OutcomePrices) {
			continue
		}
		title := m.Question
		if title == "" {
			title = e.Title
		}
		start := parseTime(m.GameStartTime)
		if start.IsZero() {
			start = parseTime(e.StartDate)
		}

		var participants []string
		binary := true
		for _, o := range m.Outcomes {
			if l := strings.ToLower(o); l != "yes" && l != "no" {
				participants = append(participants, o)
				binary = false
			}
		}

		for i, outcome := range m.Outcomes {
			// An unparseable price stays zero and is rejected by the normalizer.
			price, _ := strconv.ParseFloat(strings.TrimSpace(m.OutcomePrices[i]), 64)
			out = append(out, domain.RawQuote{
				Source:        "polymarket",
				EventKey:      m.ID,
				EventTitle:    title,
				Outcome:       outcome,
				Participants:  participants,
				Category:      category,
				EventTime:     start,
				URL:           link,
				Price:         price,
				Complementary: binary && len(m.Outcomes) == 2,
				ObservedAt:    observed,
			})
		}
	}
	return out
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if g.cfg.Limiter != nil && g.cfg.RequestsPerSec > 0 {
		if err := g.cfg.Limiter.Wait(ctx, "fetch:polymarket", g.cfg.RequestsPerSec, time.Second); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
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

// checkHTTPStatus maps non-2xx HTTP status codes to domain errors.
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

var _ domain.QuoteSource = (*GammaClient)(nil)
