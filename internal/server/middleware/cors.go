package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORS returns middleware that lets the listed dashboard origins call the
// read-only API. An empty list or "*" allows every origin. The headers
// allowed on preflight are the ones Auth reads; Retry-After is exposed so
// browser clients can back off after a 429. maxAge caches preflight
// responses; zero leaves caching to the browser.
func CORS(allowedOrigins []string, maxAge time.Duration) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	maxAgeSecs := ""
	if secs := int(maxAge / time.Second); secs > 0 {
		maxAgeSecs = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
				if allowAll || allowed[strings.ToLower(origin)] {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, X-API-Key")
					h.Set("Access-Control-Expose-Headers", "Retry-After")
					if maxAgeSecs != "" {
						h.Set("Access-Control-Max-Age", maxAgeSecs)
					}
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
