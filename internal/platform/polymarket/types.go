package polymarket

import (
	"encoding/json"
	"strings"
	"time"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// stringList decodes Gamma's JSON-encoded string arrays, e.g.
// "[\"Yes\",\"No\"]", and also accepts a plain JSON array.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*l = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return err
	}
	*l = arr
	return nil
}

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets.
type APIEvent struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Slug      string      `json:"slug"`
	Active    flexBool    `json:"active"`
	Closed    bool        `json:"closed"`
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
	Tags      []APITag    `json:"tags"`
	Markets   []APIMarket `json:"markets"`
}

// APITag is a Gamma category tag.
type APITag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	Slug           string     `json:"slug"`
	GroupItemTitle string     `json:"groupItemTitle"`
	Active         flexBool   `json:"active"`
	Closed         bool       `json:"closed"`
	Outcomes       stringList `json:"outcomes"`
	OutcomePrices  stringList `json:"outcomePrices"`
	GameStartTime  string     `json:"gameStartTime"`
	StartDate      string     `json:"startDate"`
	EndDate        string     `json:"endDate"`
}

// parseTime accepts the timestamp layouts Gamma uses. It returns the zero
// time when s is empty or unparseable.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05Z07", "2006-01-02 15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
