package domain

import "time"

// LoanStatus represents the lifecycle state of a loan record
type LoanStatus string

const (
	StatusReserved LoanStatus = "RESERVED"
	StatusBorrowed LoanStatus = "BORROWED"
	StatusReturned LoanStatus = "RETURNED"
	StatusOverdue  LoanStatus = "OVERDUE"
	StatusExpired  LoanStatus = "EXPIRED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s LoanStatus) IsTerminal() bool {
	return s == StatusReturned || s == StatusExpired
}

// IsActive reports whether the record still holds a copy of its item.
func (s LoanStatus) IsActive() bool {
	return s == StatusReserved || s == StatusBorrowed || s == StatusOverdue
}

// DeriveStatus computes the effective status of a loan record at the given
// instant without mutating anything. A Borrowed record past its due date is
// Overdue; a Reserved record past its hold expiry is Expired. Terminal and
// returned records pass through unchanged. Mutating operations persist the
// derived value as part of their own commit; reads never write.
func DeriveStatus(status LoanStatus, dueAt time.Time, returnedAt *time.Time, now time.Time) LoanStatus {
	if status.IsTerminal() || returnedAt != nil {
		return status
	}
	if !now.After(dueAt) {
		return status
	}
	switch status {
	case StatusBorrowed, StatusOverdue:
		return StatusOverdue
	case StatusReserved:
		return StatusExpired
	}
	return status
}
