package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDates(t *testing.T) {
	policy := DefaultPolicy()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 14), policy.LoanDue(start))
	assert.Equal(t, start.AddDate(0, 0, 2), policy.HoldExpiry(start))
}

func TestFineFor(t *testing.T) {
	policy := DefaultPolicy()
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		returnedAt time.Time
		want       float64
	}{
		{"early return", due.Add(-48 * time.Hour), 0},
		{"on time", due, 0},
		{"hours late but under a day", due.Add(23 * time.Hour), 0},
		{"one full day late", due.Add(25 * time.Hour), 2.0},
		{"five days late", due.Add((5*24 + 1) * time.Hour), 10.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.FineFor(due, tc.returnedAt))
		})
	}
}

func TestFineForCustomRate(t *testing.T) {
	policy := DefaultPolicy()
	policy.DailyFineRate = 0.5
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.5, policy.FineFor(due, due.Add((3*24+1)*time.Hour)))
}
