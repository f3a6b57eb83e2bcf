package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	returned := now.Add(-30 * time.Minute)

	cases := []struct {
		name       string
		status     LoanStatus
		dueAt      time.Time
		returnedAt *time.Time
		want       LoanStatus
	}{
		{"borrowed before due", StatusBorrowed, future, nil, StatusBorrowed},
		{"borrowed exactly at due", StatusBorrowed, now, nil, StatusBorrowed},
		{"borrowed past due", StatusBorrowed, past, nil, StatusOverdue},
		{"persisted overdue stays overdue", StatusOverdue, past, nil, StatusOverdue},
		{"reserved before expiry", StatusReserved, future, nil, StatusReserved},
		{"reserved past expiry", StatusReserved, past, nil, StatusExpired},
		{"returned is untouched", StatusReturned, past, &returned, StatusReturned},
		{"expired is untouched", StatusExpired, past, nil, StatusExpired},
		{"returned-at wins over due date", StatusBorrowed, past, &returned, StatusBorrowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.status, tc.dueAt, tc.returnedAt, now)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusReturned.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusBorrowed.IsTerminal())
	assert.False(t, StatusReserved.IsTerminal())
	assert.False(t, StatusOverdue.IsTerminal())

	assert.True(t, StatusReserved.IsActive())
	assert.True(t, StatusBorrowed.IsActive())
	assert.True(t, StatusOverdue.IsActive())
	assert.False(t, StatusReturned.IsActive())
	assert.False(t, StatusExpired.IsActive())
}
