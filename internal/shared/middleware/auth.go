package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pocketbook/internal/shared/auth"
)

type ContextKey string

const (
	UserIDKey ContextKey = "user_id"
	EmailKey  ContextKey = "email"
)

// AccessTokenCookie is the cookie browsers carry the session token in.
const AccessTokenCookie = "access_token"

// TokenValidator is satisfied by *auth.JWT.
type TokenValidator interface {
	Validate(token string) (*auth.JWTClaims, error)
}

// Auth requires a valid session token and puts the user id and email into
// the request context. The access_token cookie wins over an
// "Authorization: Bearer" header when both are sent.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := tokenFromRequest(r)
			if problem != "" {
				unauthorized(w, problem)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest returns the raw token, or a message explaining why none
// could be read.
func tokenFromRequest(r *http.Request) (token, problem string) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, ""
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authentication required"
	}
	scheme, value, ok := strings.Cut(header, " ")
	value = strings.TrimSpace(value)
	if !ok || !strings.EqualFold(scheme, "Bearer") || value == "" {
		return "", "Invalid authorization header format"
	}
	return value, ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pocketbook"`)
	writeError(w, http.StatusUnauthorized, message)
}

// UserIDFromContext returns the authenticated user id set by Auth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok && id > 0
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
