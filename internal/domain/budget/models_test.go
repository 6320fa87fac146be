package budget

import (
	"testing"
	"time"
)

func TestPeriodWindow_YearRollover(t *testing.T) {
	start, end := Period{Month: 12, Year: 2024}.Window(time.UTC)

	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestPeriodBefore(t *testing.T) {
	tests := []struct {
		a, b Period
		want bool
	}{
		{Period{5, 2024}, Period{6, 2024}, true},
		{Period{6, 2024}, Period{6, 2024}, false},
		{Period{1, 2025}, Period{12, 2024}, false},
		{Period{12, 2023}, Period{1, 2024}, true},
	}
	for _, tt := range tests {
		if got := tt.a.Before(tt.b); got != tt.want {
			t.Errorf("%v.Before(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPeriodValidate(t *testing.T) {
	if err := (Period{Month: 0, Year: 2024}).Validate(); err != ErrInvalidMonth {
		t.Errorf("month 0: got %v", err)
	}
	if err := (Period{Month: 13, Year: 2024}).Validate(); err != ErrInvalidMonth {
		t.Errorf("month 13: got %v", err)
	}
	if err := (Period{Month: 6, Year: 2024}).Validate(); err != nil {
		t.Errorf("valid period: got %v", err)
	}
}

func TestPeriodString(t *testing.T) {
	if got := (Period{Month: 5, Year: 2024}).String(); got != "May 2024" {
		t.Errorf("String() = %q", got)
	}
}
