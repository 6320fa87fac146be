package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	if !isUniqueViolation(dup, "") {
		t.Error("expected unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", dup), "users_email_key") {
		t.Error("expected wrapped unique violation to match")
	}
	if isUniqueViolation(dup, "budgets_user_period_key") {
		t.Error("different constraint must not match")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}, "") {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom"), "") {
		t.Error("plain error is not a unique violation")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"food":    "food",
		"100%":    `100\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
