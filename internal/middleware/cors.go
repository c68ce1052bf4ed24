// Package middleware provides HTTP middleware for the desk's local API.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// CORS allows the listed browser origins to call the local API. "*" matches
// any origin but never grants credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				exact, wildcard := matchOrigin(allowedOrigins, origin)
				if exact || wildcard {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Content-Type")
					h.Add("Vary", "Origin")
					if exact {
						h.Set("Access-Control-Allow-Credentials", "true")
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

func matchOrigin(allowed []string, origin string) (exact, wildcard bool) {
	for _, o := range allowed {
		switch o {
		case origin:
			exact = true
		case "*":
			wildcard = true
		}
	}
	return exact, wildcard
}

// LocalOnly rejects requests that did not come from a loopback address. The
// session token lives in this process, so nothing off-host may drive it.
func LocalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.RemoteAddr
		if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			host = h
		}
		ip := net.ParseIP(strings.Trim(host, "[]"))
		if ip == nil || !ip.IsLoopback() {
			http.Error(w, `{"error":"local access only"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
