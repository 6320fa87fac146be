// Package http exposes the domain services as a JSON REST API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocketbook/internal/domain/budget"
	"pocketbook/internal/shared/apperrors"
	"pocketbook/internal/shared/middleware"
)

const maxBodySize = 1 << 20 // 1 MiB

var (
	errInvalidBody   = apperrors.Validation("Invalid request body")
	errUnauthorized  = apperrors.Auth("Unauthorized")
	errInvalidDate   = apperrors.Validation("Invalid date, use YYYY-MM-DD or RFC 3339")
	errInvalidNumber = apperrors.Validation("Month and year must be numbers")
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps err to a status and public message. Unclassified errors
// are logged with the request path and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeMessage(w, status, apperrors.PublicMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidBody
		}
		return errInvalidBody.Wrap(err)
	}
	return nil
}

func userIDFrom(r *http.Request) (int64, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, errUnauthorized
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD, read as midnight in loc, or RFC 3339.
// The bool result reports whether the input was date-only.
func parseDate(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, errInvalidDate
	}
	return t, false, nil
}

func parseOptionalDate(s *string, loc *time.Location) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, _, err := parseDate(*s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// requiredPeriod reads month and year query parameters, returning missing
// when either is absent.
func requiredPeriod(r *http.Request, missing error) (budget.Period, error) {
	p, ok, err := optionalPeriod(r)
	if err != nil {
		return budget.Period{}, err
	}
	if !ok {
		return budget.Period{}, missing
	}
	return p, nil
}

// optionalPeriod returns ok=false when month and year are both absent.
func optionalPeriod(r *http.Request) (budget.Period, bool, error) {
	q := r.URL.Query()
	month, year := q.Get("month"), q.Get("year")
	if month == "" || year == "" {
		return budget.Period{}, false, nil
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return budget.Period{}, false, errInvalidNumber
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return budget.Period{}, false, errInvalidNumber
	}
	p := budget.Period{Month: m, Year: y}
	if err := p.Validate(); err != nil {
		return budget.Period{}, false, err
	}
	return p, true, nil
}
