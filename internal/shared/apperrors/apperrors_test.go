package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"conflict", Conflict("already exists"), http.StatusBadRequest},
		{"auth", Auth("Invalid credentials"), http.StatusUnauthorized},
		{"not found", NotFound("Goal not found"), http.StatusNotFound},
		{"unavailable", Unavailable("Failed to send OTP"), http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("create: %w", Validation("x")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestWrapKeepsIdentity(t *testing.T) {
	sentinel := NotFound("Transaction not found")
	cause := errors.New("sql: no rows in result set")

	wrapped := sentinel.Wrap(cause)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "Transaction not found", PublicMessage(wrapped))
}

func TestPublicMessage_HidesUnexpected(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "Internal server error", PublicMessage(New(KindUnexpected, "leaky detail")))
}

func TestIs_DifferentMessages(t *testing.T) {
	assert.False(t, errors.Is(NotFound("Goal not found"), NotFound("Reminder not found")))
	assert.False(t, errors.Is(Validation("x"), Conflict("x")))
}
