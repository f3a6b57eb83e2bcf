package domain

import "time"

// Policy holds the circulation rules. The engine receives it as an injected
// value so every constant can be tuned per deployment (and per test) without
// touching the state machine.
type Policy struct {
	LoanDays             int     // loan duration in days
	RenewalExtensionDays int     // days added to dueAt per renewal
	RenewalCap           int     // maximum renewals per loan
	DailyFineRate        float64 // currency units charged per day late
	ReservationDays      int     // hold window before an unconfirmed reservation expires
	MaxActiveLoans       int     // maximum concurrently borrowed items per patron
}

// DefaultPolicy returns the standard circulation rules.
func DefaultPolicy() Policy {
	return Policy{
		LoanDays:             14,
		RenewalExtensionDays: 7,
		RenewalCap:           3,
		DailyFineRate:        2.0,
		ReservationDays:      2,
		MaxActiveLoans:       3,
	}
}

// LoanDue returns the due date for a loan starting at the given instant.
func (p Policy) LoanDue(from time.Time) time.Time {
	return from.AddDate(0, 0, p.LoanDays)
}

// HoldExpiry returns the expiry of a reservation placed at the given instant.
func (p Policy) HoldExpiry(from time.Time) time.Time {
	return from.AddDate(0, 0, p.ReservationDays)
}

// FineFor computes the fine for a loan due at dueAt and returned at
// returnedAt. Fines accrue per full day late, floor-rounded, never negative.
// The amount is computed exactly once, at return time, from the actual
// return timestamp; it is never recomputed afterwards.
func (p Policy) FineFor(dueAt, returnedAt time.Time) float64 {
	if !returnedAt.After(dueAt) {
		return 0
	}
	daysLate := int(returnedAt.Sub(dueAt).Hours() / 24)
	if daysLate < 0 {
		daysLate = 0
	}
	return float64(daysLate) * p.DailyFineRate
}
