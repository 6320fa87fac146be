package middleware

import (
	"net/http"
	"net/url"
	"slices"
)

// CORS applies Cross-Origin Resource Sharing headers.
//
// With no allowed hosts every origin gets "Access-Control-Allow-Origin: *".
// Otherwise a matching Origin is echoed back with credentials allowed and a
// non-matching one is rejected with 403. Requests without an Origin header
// are not cross-origin and pass through untouched.
func CORS(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case len(allowedHosts) == 0:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin == "":
				// same-origin or non-browser client
			case isOriginAllowed(origin, allowedHosts):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			default:
				writeError(w, http.StatusForbidden, "Origin not allowed")
				return
			}

			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")
			h.Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches the Origin's host against the allowed list, with
// or without its port.
func isOriginAllowed(origin string, allowedHosts []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	host, name := normalizeHost(u.Host), normalizeHost(u.Hostname())
	return slices.ContainsFunc(allowedHosts, func(allowed string) bool {
		allowed = normalizeHost(allowed)
		return allowed == host || allowed == name
	})
}
