package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/core/domain"

	"gorm.io/gorm"
)

// Circulation service errors
var (
	ErrPatronNotFound    = errors.New("patron not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrLoanNotFound      = errors.New("loan record not found")
	ErrPatronInactive    = errors.New("inactive patron cannot borrow")
	ErrNoCopiesAvailable = errors.New("no copies of this item are available")
	ErrHasOverdue        = errors.New("patron has overdue loans")
	ErrLoanLimitReached  = errors.New("patron has reached the active loan limit")
	ErrDuplicateHold     = errors.New("patron already holds or has reserved this item")
	ErrNotAReservation   = errors.New("loan record is not a reservation")
	ErrRenewalCapReached = errors.New("maximum number of renewals reached")
	ErrLoanOverdue       = errors.New("overdue loans cannot be renewed")
	ErrAlreadyReturned   = errors.New("loan record is already closed")
	ErrHoldExpired       = errors.New("reservation has expired")
	ErrNoFineDue         = errors.New("no fine due on this loan record")
	ErrFineAlreadyPaid   = errors.New("fine has already been paid")
)

// CirculationService is the loan lifecycle engine. Every mutating operation
// runs as a single database transaction: all policy checks precede any
// mutation, and the availability decrement and ledger write commit together
// or not at all. Availability itself is guarded by a conditional UPDATE, so
// concurrent takes of the last copy are linearized at the datastore.
type CirculationService struct {
	db         *gorm.DB
	loanRepo   *repositories.LoanRepository
	itemRepo   *repositories.ItemRepository
	patronRepo *repositories.PatronRepository
	policy     domain.Policy
}

// NewCirculationService creates a new circulation service
func NewCirculationService(
	db *gorm.DB,
	loanRepo *repositories.LoanRepository,
	itemRepo *repositories.ItemRepository,
	patronRepo *repositories.PatronRepository,
	policy domain.Policy,
) *CirculationService {
	return &CirculationService{
		db:         db,
		loanRepo:   loanRepo,
		itemRepo:   itemRepo,
		patronRepo: patronRepo,
		policy:     policy,
	}
}

// Policy returns the circulation rules the engine was configured with.
func (s *CirculationService) Policy() domain.Policy {
	return s.policy
}

// BorrowInput represents borrow input
type BorrowInput struct {
	PatronID uint       `json:"patron_id" validate:"required"`
	ItemID   uint       `json:"item_id" validate:"required"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// Borrow checks a copy of an item out to a patron.
func (s *CirculationService) Borrow(ctx context.Context, input *BorrowInput) (*models.LoanRecord, error) {
	now := time.Now()
	var record *models.LoanRecord

	err := s.db.Transaction(func(tx *gorm.DB) error {
		patrons := s.patronRepo.WithTx(tx)
		items := s.itemRepo.WithTx(tx)
		loans := s.loanRepo.WithTx(tx)

		active, err := patrons.IsActive(ctx, input.PatronID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPatronNotFound
			}
			return err
		}
		if !active {
			return ErrPatronInactive
		}

		exists, err := items.Exists(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrItemNotFound
		}

		// Lock the patron's active records so concurrent borrows by the
		// same patron serialize on the limit check.
		held, err := loans.LockActiveByPatron(ctx, input.PatronID)
		if err != nil {
			return err
		}
		borrowed := 0
		for _, rec := range held {
			switch rec.EffectiveStatus(now) {
			case domain.StatusOverdue:
				return ErrHasOverdue
			case domain.StatusBorrowed:
				borrowed++
			}
		}
		if borrowed >= s.policy.MaxActiveLoans {
			return ErrLoanLimitReached
		}

		// All checks passed; take a copy. The conditional decrement is the
		// race arbiter: losing it is a normal no-copies outcome.
		taken, err := items.ReserveCopy(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		dueAt := s.policy.LoanDue(now)
		if input.DueAt != nil {
			dueAt = *input.DueAt
		}

		record = &models.LoanRecord{
			PatronID: input.PatronID,
			ItemID:   input.ItemID,
			DueAt:    dueAt,
			Status:   string(domain.StatusBorrowed),
		}
		return loans.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, record.ID)
}

// ReserveInput represents reserve input
type ReserveInput struct {
	PatronID uint `json:"patron_id" validate:"required"`
	ItemID   uint `json:"item_id" validate:"required"`
}

// Reserve places a hold on a copy of an item for a patron. The copy leaves
// the available pool immediately; the hold lapses if never confirmed.
func (s *CirculationService) Reserve(ctx context.Context, input *ReserveInput) (*models.LoanRecord, error) {
	now := time.Now()
	var record *models.LoanRecord

	err := s.db.Transaction(func(tx *gorm.DB) error {
		patrons := s.patronRepo.WithTx(tx)
		items := s.itemRepo.WithTx(tx)
		loans := s.loanRepo.WithTx(tx)

		if _, err := patrons.GetByID(ctx, input.PatronID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPatronNotFound
			}
			return err
		}

		exists, err := items.Exists(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrItemNotFound
		}

		held, err := loans.LockActiveByPatron(ctx, input.PatronID)
		if err != nil {
			return err
		}
		for _, rec := range held {
			if rec.EffectiveStatus(now) == domain.StatusOverdue {
				return ErrHasOverdue
			}
			if rec.ItemID == input.ItemID && rec.EffectiveStatus(now).IsActive() {
				return ErrDuplicateHold
			}
		}

		taken, err := items.ReserveCopy(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		record = &models.LoanRecord{
			PatronID: input.PatronID,
			ItemID:   input.ItemID,
			DueAt:    s.policy.HoldExpiry(now),
			Status:   string(domain.StatusReserved),
		}
		return loans.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, record.ID)
}

// Confirm converts a reservation into a fresh loan. The held copy stays out
// of the pool; only the record's dates and status change.
func (s *CirculationService) Confirm(ctx context.Context, loanID uint) (*models.LoanRecord, error) {
	now := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loans := s.loanRepo.WithTx(tx)

		record, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		switch record.EffectiveStatus(now) {
		case domain.StatusReserved:
			// proceed
		case domain.StatusExpired:
			return ErrHoldExpired
		default:
			return ErrNotAReservation
		}

		record.Status = string(domain.StatusBorrowed)
		record.CreatedAt = now
		record.DueAt = s.policy.LoanDue(now)
		record.AppendNote(fmt.Sprintf("Reservation confirmed on %s.", now.Format("2006-01-02")))
		return loans.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, loanID)
}

// Renew extends a loan's due date by the policy extension, up to the renewal
// cap. Overdue loans cannot be renewed; the patron must return them.
func (s *CirculationService) Renew(ctx context.Context, loanID uint) (*models.LoanRecord, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loans := s.loanRepo.WithTx(tx)

		record, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		switch record.EffectiveStatus(time.Now()) {
		case domain.StatusReturned:
			return ErrAlreadyReturned
		case domain.StatusOverdue:
			return ErrLoanOverdue
		case domain.StatusExpired:
			return ErrHoldExpired
		}
		if record.RenewalCount >= s.policy.RenewalCap {
			return ErrRenewalCapReached
		}

		record.DueAt = record.DueAt.AddDate(0, 0, s.policy.RenewalExtensionDays)
		record.RenewalCount++
		return loans.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, loanID)
}

// Return closes a loan record and releases its copy back to the pool. A late
// return gets its fine computed here, once, from the actual return time.
// Returning a still-pending reservation cancels the hold without a fine.
// Calling Return twice is rejected, and the copy is released exactly once.
func (s *CirculationService) Return(ctx context.Context, loanID uint) (*models.LoanRecord, error) {
	now := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loans := s.loanRepo.WithTx(tx)
		items := s.itemRepo.WithTx(tx)

		record, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		// Terminal persisted states no longer hold a copy; releasing again
		// would break the inventory invariant.
		persisted := domain.LoanStatus(record.Status)
		if persisted.IsTerminal() || record.ReturnedAt != nil {
			return ErrAlreadyReturned
		}

		derived := record.EffectiveStatus(now)
		if derived == domain.StatusBorrowed || derived == domain.StatusOverdue {
			fine := s.policy.FineFor(record.DueAt, now)
			if fine > 0 {
				daysLate := int(now.Sub(record.DueAt).Hours() / 24)
				record.Fine.Amount = fine
				record.AppendNote(fmt.Sprintf("Returned %d day(s) late. Fine applied: %.2f.", daysLate, fine))
			}
		} else {
			record.AppendNote("Reservation cancelled before pickup.")
		}

		record.ReturnedAt = &now
		record.Status = string(domain.StatusReturned)
		if err := loans.Update(ctx, record); err != nil {
			return err
		}

		return items.ReleaseCopy(ctx, record.ItemID)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, loanID)
}

// PayFine records payment of a loan's fine. The loan's status is untouched;
// only the fine flag and payment timestamp change.
func (s *CirculationService) PayFine(ctx context.Context, loanID uint) (*models.LoanRecord, error) {
	now := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loans := s.loanRepo.WithTx(tx)

		record, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		if record.Fine.Amount <= 0 {
			return ErrNoFineDue
		}
		if record.Fine.Paid {
			return ErrFineAlreadyPaid
		}

		record.Fine.Paid = true
		record.Fine.PaidAt = &now
		record.AppendNote(fmt.Sprintf("Fine of %.2f paid on %s.", record.Fine.Amount, now.Format("2006-01-02")))
		return loans.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return s.loanRepo.GetByID(ctx, loanID)
}

// Get returns a single loan record
func (s *CirculationService) Get(ctx context.Context, loanID uint) (*models.LoanRecord, error) {
	record, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListInput represents ledger list input
type ListInput struct {
	Page     int
	Limit    int
	Status   string
	PatronID *uint
	ItemID   *uint
	From     *time.Time
	To       *time.Time
}

// ListOutput represents ledger list output
type ListOutput struct {
	Records    []*models.LoanRecord `json:"records"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

// List lists ledger records matching the filter
func (s *CirculationService) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	filter := &repositories.LoanFilter{
		Status:   input.Status,
		PatronID: input.PatronID,
		ItemID:   input.ItemID,
		From:     input.From,
		To:       input.To,
	}

	offset := (input.Page - 1) * input.Limit
	records, total, err := s.loanRepo.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListOutput{
		Records:    records,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// ListByPatron lists a patron's loan records, optionally filtered by status
func (s *CirculationService) ListByPatron(ctx context.Context, patronID uint, status string) ([]*models.LoanRecord, error) {
	if _, err := s.patronRepo.GetByID(ctx, patronID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatronNotFound
		}
		return nil, err
	}
	return s.loanRepo.ListByPatron(ctx, patronID, status)
}

// ListByItem lists an item's loan records, optionally filtered by status
func (s *CirculationService) ListByItem(ctx context.Context, itemID uint, status string) ([]*models.LoanRecord, error) {
	exists, err := s.itemRepo.Exists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrItemNotFound
	}
	return s.loanRepo.ListByItem(ctx, itemID, status)
}

// ListOverdue lists records past due right now, oldest due first.
func (s *CirculationService) ListOverdue(ctx context.Context) ([]*models.LoanRecord, error) {
	return s.loanRepo.ListOverdue(ctx, time.Now())
}

// Remove hard-deletes a ledger record (administrative use only). If the
// record still holds a copy, the copy is released first so the inventory
// invariant survives the removal.
func (s *CirculationService) Remove(ctx context.Context, loanID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		loans := s.loanRepo.WithTx(tx)
		items := s.itemRepo.WithTx(tx)

		record, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		if domain.LoanStatus(record.Status).IsActive() {
			if err := items.ReleaseCopy(ctx, record.ItemID); err != nil {
				return err
			}
		}

		return loans.Delete(ctx, loanID)
	})
}

// Stats summarizes the current state of the ledger.
type Stats struct {
	ActiveLoans  int64 `json:"active_loans"`
	Reservations int64 `json:"reservations"`
	Overdue      int64 `json:"overdue"`
	UnpaidFines  int64 `json:"unpaid_fines"`
}

// GetStats returns ledger counts for the staff dashboard.
func (s *CirculationService) GetStats(ctx context.Context) (*Stats, error) {
	borrowed, err := s.loanRepo.CountByStatus(ctx, string(domain.StatusBorrowed))
	if err != nil {
		return nil, err
	}
	reserved, err := s.loanRepo.CountByStatus(ctx, string(domain.StatusReserved))
	if err != nil {
		return nil, err
	}
	overdue, err := s.loanRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	fines, err := s.loanRepo.CountUnpaidFines(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		ActiveLoans:  borrowed,
		Reservations: reserved,
		Overdue:      int64(len(overdue)),
		UnpaidFines:  fines,
	}, nil
}
