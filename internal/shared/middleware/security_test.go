package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsHostAllowed(t *testing.T) {
	allowed := []string{"pocketbook.app", "api.pocketbook.app:8443", "[::1]:8080"}

	tests := []struct {
		host string
		want bool
	}{
		{host: "pocketbook.app", want: true},
		{host: "pocketbook.app:80", want: true},
		{host: "  PocketBook.App  ", want: true},
		{host: "api.pocketbook.app", want: true},
		{host: "api.pocketbook.app:8443", want: true},
		{host: "::1", want: true},
		{host: "[::1]:9000", want: true},
		{host: "www.pocketbook.app", want: false},
		{host: "pocketbook.app.evil.com", want: false},
		{host: "[::2]:8080", want: false},
		{host: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := IsHostAllowed(tt.host, allowed); got != tt.want {
				t.Errorf("IsHostAllowed(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}

	if !IsHostAllowed("anything.example", nil) {
		t.Error("IsHostAllowed with no allowed hosts should accept any host")
	}
}

func TestSecureCookies_AccessTokenCookie(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: AccessTokenCookie, Value: "jwt", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	HSTS(SecureCookies(next)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	if got := rr.Header().Get("Strict-Transport-Security"); got != hstsValue {
		t.Errorf("Strict-Transport-Security = %q", got)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != AccessTokenCookie || c.Value != "jwt" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie not hardened: secure=%v httponly=%v samesite=%v", c.Secure, c.HttpOnly, c.SameSite)
	}
}

func TestSecureCookies_ImplicitWrite(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "theme=dark")
		w.Header().Add("Set-Cookie", AccessTokenCookie+"=; Path=/; Max-Age=0")
		w.Write([]byte(`{"ok":true}`))
	})

	rr := httptest.NewRecorder()
	SecureCookies(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	lines := rr.Header().Values("Set-Cookie")
	if len(lines) != 2 {
		t.Fatalf("got %d Set-Cookie lines, want 2", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "Secure") || !strings.Contains(line, "HttpOnly") {
			t.Errorf("Set-Cookie %q not hardened", line)
		}
	}
	if !strings.Contains(lines[1], "Max-Age=0") {
		t.Errorf("logout cookie lost its expiry: %q", lines[1])
	}
}

func TestHardenCookie(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		contains []string
		absent   string
	}{
		{
			name:     "keeps explicit SameSite",
			line:     "a=b; SameSite=Lax; Secure",
			contains: []string{"SameSite=Lax", "Secure", "HttpOnly"},
			absent:   "Strict",
		},
		{
			name:     "defaults SameSite to Strict",
			line:     "a=b; Path=/api",
			contains: []string{"Path=/api", "SameSite=Strict"},
		},
		{
			name:     "unparseable line passes through",
			line:     "not a cookie",
			contains: []string{"not a cookie"},
			absent:   "Secure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hardenCookie(tt.line)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("hardenCookie(%q) = %q, missing %q", tt.line, got, want)
				}
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("hardenCookie(%q) = %q, should not contain %q", tt.line, got, tt.absent)
			}
			if strings.Count(got, "Secure") > 1 {
				t.Errorf("hardenCookie(%q) = %q, Secure duplicated", tt.line, got)
			}
		})
	}
}
