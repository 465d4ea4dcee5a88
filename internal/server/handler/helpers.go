package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit reads ?limit=, defaulting to def and capping at ceiling.
func parseLimit(r *http.Request, def, ceiling int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return min(limit, ceiling)
}

// parseListOpts extracts pagination and filters from the query string:
// limit (default 50, max 500), offset, kind, and since/until as RFC 3339
// timestamps.
func parseListOpts(r *http.Request) (domain.ListOpts, error) {
	q := r.URL.Query()
	opts := domain.ListOpts{Limit: parseLimit(r, 50, 500)}

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	if v := q.Get("kind"); v != "" {
		kind := domain.OpportunityKind(v)
		if kind != domain.Arbitrage && kind != domain.ValueEdge {
			return opts, errBadParam("kind", v)
		}
		opts.Kind = kind
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &opts.Since}, {"until", &opts.Until}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errBadParam(p.name, v)
		}
		*p.dst = &t
	}
	return opts, nil
}

type paramError struct{ name, value string }

func (e paramError) Error() string { return "invalid " + e.name + " " + strconv.Quote(e.value) }

func errBadParam(name, value string) error { return paramError{name: name, value: value} }
