package kalshi

import (
	"strconv"
	"strings"
)

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (1-99); newer responses also carry dollar strings.
type KalshiMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	YesSubTitle    string  `json:"yes_sub_title"`
	Status         string  `json:"status"` // "open", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	YesAskDollars  string  `json:"yes_ask_dollars"`
	NoAskDollars   string  `json:"no_ask_dollars"`
	Category       string  `json:"category"`
	ExpirationTime string  `json:"expected_expiration_time"`
	CloseTime      string  `json:"close_time"`
}

// askPrice returns an ask as a probability in (0,1], preferring the dollar
// string. Zero means no ask is quoted.
func askPrice(cents float64, dollars string) float64 {
	if d, err := strconv.ParseFloat(strings.TrimSpace(dollars), 64); err == nil && d > 0 {
		return d
	}
	return cents / 100
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type marketsResponse struct {
	Markets []KalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}
