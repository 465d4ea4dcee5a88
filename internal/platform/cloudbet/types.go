package cloudbet

import (
	"sort"
	"strings"
)

type sportsResponse struct {
	Sports []apiSport `json:"sports"`
}

type apiSport struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	EventCount int    `json:"eventCount"`
}

type eventsResponse struct {
	Key          string           `json:"key"`
	Name         string           `json:"name"`
	Competitions []apiCompetition `json:"competitions"`
}

type apiCompetition struct {
	Key    string     `json:"key"`
	Name   string     `json:"name"`
	Events []apiEvent `json:"events"`
}

type apiCompetitor struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type apiEvent struct {
	ID         int64                `json:"id"`
	Key        string               `json:"key"`
	Name       string               `json:"name"`
	Status     string               `json:"status"`
	CutoffTime string               `json:"cutoffTime"`
	Home       *apiCompetitor       `json:"home"`
	Away       *apiCompetitor       `json:"away"`
	Markets    map[string]apiMarket `json:"markets"`
}

type apiMarket struct {
	Submarkets map[string]apiSubmarket `json:"submarkets"`
}

type apiSubmarket struct {
	Selections []apiSelection `json:"selections"`
}

type apiSelection struct {
	Outcome string  `json:"outcome"`
	Params  string  `json:"params"`
	Price   float64 `json:"price"`
	Status  string  `json:"status"`
	Side    string  `json:"side"`
}

// open reports whether a selection can currently be backed.
func (s apiSelection) open() bool {
	switch strings.ToUpper(s.Status) {
	case "SELLING", "TRADING", "":
	default:
		return false
	}
	return s.Side == "" || strings.EqualFold(s.Side, "BACK")
}

// fullTime picks the full-time submarket, falling back to the first key in
// sorted order.
func (m apiMarket) fullTime() (apiSubmarket, bool) {
	if len(m.Submarkets) == 0 {
		return apiSubmarket{}, false
	}
	keys := make([]string, 0, len(m.Submarkets))
	for k := range m.Submarkets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, "period=ft") {
			return m.Submarkets[k], true
		}
	}
	return m.Submarkets[keys[0]], true
}

// competitorName turns a competitor key such as "s-kansas-city-chiefs" into
// "Kansas City Chiefs". Other labels are returned unchanged.
func competitorName(key string) string {
	if !strings.HasPrefix(key, "s-") {
		return key
	}
	words := strings.Split(strings.TrimPrefix(key, "s-"), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
