package middleware

import (
	"net"
	"net/http"
	"slices"
	"strings"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// HSTS tells browsers to use HTTPS for a year, subdomains included.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", hstsValue)
		next.ServeHTTP(w, r)
	})
}

// SecureCookies hardens every cookie set by the wrapped handler, including
// the access token cookie issued on sign in and cleared on logout.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cookieHardener{ResponseWriter: w}, r)
	})
}

// cookieHardener rewrites Set-Cookie headers just before they are sent.
type cookieHardener struct {
	http.ResponseWriter
	sent bool
}

func (h *cookieHardener) WriteHeader(code int) {
	if h.sent {
		return
	}
	h.sent = true

	header := h.ResponseWriter.Header()
	lines := header.Values("Set-Cookie")
	for i, line := range lines {
		lines[i] = hardenCookie(line)
	}
	if len(lines) > 0 {
		header["Set-Cookie"] = lines
	}
	h.ResponseWriter.WriteHeader(code)
}

func (h *cookieHardener) Write(b []byte) (int, error) {
	h.WriteHeader(http.StatusOK)
	return h.ResponseWriter.Write(b)
}

func (h *cookieHardener) Unwrap() http.ResponseWriter {
	return h.ResponseWriter
}

// hardenCookie forces Secure and HttpOnly and defaults SameSite to Strict.
// A SameSite mode chosen by the handler is kept. Lines that do not parse are
// passed through untouched.
func hardenCookie(line string) string {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return line
	}
	c.Secure = true
	c.HttpOnly = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
	if s := c.String(); s != "" {
		return s
	}
	return line
}

// IsHostAllowed reports whether host may be used as the HTTPS redirect
// target. Ports are ignored on either side; an empty list allows any host.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = normalizeHost(host)
	name := hostname(host)
	return slices.ContainsFunc(allowedHosts, func(allowed string) bool {
		allowed = normalizeHost(allowed)
		return allowed == host || hostname(allowed) == name
	})
}

func normalizeHost(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// hostname drops a port and IPv6 brackets when present.
func hostname(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.Trim(hostport, "[]")
}
