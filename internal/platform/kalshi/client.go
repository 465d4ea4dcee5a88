// Package kalshi fetches open binary markets from the Kalshi trade API as
// raw quotes. Market data is public; requests are RSA-signed only when a
// private key is configured.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// DefaultBaseURL is the public trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

const marketURL = "https://kalshi.com/markets/"

// Config configures a Client.
type Config struct {
	BaseURL  string
	APIKeyID string
	PageSize int
	MaxPages int
	Timeout  time.Duration
	// Limiter paces page requests when set.
	Limiter        domain.RateLimiter
	RequestsPerSec int
}

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	cfg        Config
	privateKey *rsa.PrivateKey
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a new Kalshi REST client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "kalshi")),
		now:        time.Now,
	}
}

// SetRSAPrivateKey loads an RSA private key from PEM-encoded bytes and
// enables signed requests.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return errors.New("kalshi: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// Name implements domain.QuoteSource.
func (c *Client) Name() string { return "kalshi" }

// FetchQuotes walks the open-market cursor and emits a Yes and a No quote
// per market priced at the respective ask.
func (c *Client) FetchQuotes(ctx context.Context) ([]domain.RawQuote, error) {
	observed := c.now().UTC()
	var (
		quotes  []domain.RawQuote
		cursor  string
		markets int
	)
	for page := 0; page < c.cfg.MaxPages; page++ {
		batch, next, err := c.GetMarkets(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			quotes = append(quotes, batch[i].RawQuotes(observed)...)
		}
		markets += len(batch)
		if next == "" {
			break
		}
		cursor = next
	}
	c.logger.InfoContext(ctx, "fetched kalshi markets",
		slog.Int("markets", markets),
		slog.Int("quotes", len(quotes)),
	)
	return quotes, nil
}

// GetMarkets returns one page of open markets and the cursor of the next.
func (c *Client) GetMarkets(ctx context.Context, cursor string) ([]KalshiMarket, string, error) {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.doGet(ctx, "/markets", params)
	if err != nil {
		return nil, "", fmt.Errorf("kalshi: get markets: %w", err)
	}

	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("kalshi: decode markets: %w", err)
	}
	return resp.Markets, resp.Cursor, nil
}

// RawQuotes converts one market into its Yes and No quotes. Both sides
// come from their own asks, so they are not marked complementary.
func (m *KalshiMarket) RawQuotes(observed time.Time) []domain.RawQuote {
	title := m.Title
	if m.YesSubTitle != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(m.YesSubTitle)) {
		title = title + " " + m.YesSubTitle
	}
	var at time.Time
	for _, s := range []string{m.ExpirationTime, m.CloseTime} {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			at = t.UTC()
			break
		}
	}
	base := domain.RawQuote{
		Source:     "kalshi",
		EventKey:   m.Ticker,
		EventTitle: title,
		Category:   m.Category,
		EventTime:  at,
		URL:        marketURL + strings.ToLower(m.EventTicker),
		ObservedAt: observed,
	}
	yes, no := base, base
	yes.Outcome, yes.Price = "Yes", askPrice(m.YesAsk, m.YesAskDollars)
	no.Outcome, no.Price = "No", askPrice(m.NoAsk, m.NoAskDollars)
	return []domain.RawQuote{yes, no}
}

// doGet sends a GET, signing it when a private key is configured.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.cfg.Limiter != nil && c.cfg.RequestsPerSec > 0 {
		if err := c.cfg.Limiter.Wait(ctx, "fetch:kalshi", c.cfg.RequestsPerSec, time.Second); err != nil {
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

	if c.privateKey != nil {
		if err := c.signRequest(req, http.MethodGet, req.URL.Path); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// signRequest adds RSA-PSS-SHA256 headers over timestamp + method + path.
func (c *Client) signRequest(req *http.Request, method, path string) error {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	hash := sha256.Sum256([]byte(ts + method + path))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("RSA sign: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.cfg.APIKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr KalshiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := fmt.Sprintf("%s (%s)", apiErr.Error.Message, apiErr.Error.Code)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, detail)
	}
}

var _ domain.QuoteSource = (*Client)(nil)
