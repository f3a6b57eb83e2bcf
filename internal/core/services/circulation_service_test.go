package services

import (
	"context"
	"testing"
	"time"

	"biblios/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 2)

	record, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusBorrowed), record.Status)
	assert.Equal(t, patron.ID, record.PatronID)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, env.policy.LoanDays), record.DueAt, time.Minute)
	assert.Equal(t, 1, env.available(t, item.ID))
	env.checkInventoryInvariant(t, item.ID)
}

func TestBorrowPatronNotFound(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, "dune", 1)

	_, err := env.circulation.Borrow(context.Background(), &BorrowInput{PatronID: 999, ItemID: item.ID})
	assert.ErrorIs(t, err, ErrPatronNotFound)
}

func TestBorrowItemNotFound(t *testing.T) {
	env := newTestEnv(t)
	patron := env.seedPatron(t, "alice")

	_, err := env.circulation.Borrow(context.Background(), &BorrowInput{PatronID: patron.ID, ItemID: 999})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestBorrowInactivePatron(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	require.NoError(t, env.db.Model(patron).UpdateColumn("active", false).Error)

	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	assert.ErrorIs(t, err, ErrPatronInactive)
	assert.Equal(t, 1, env.available(t, item.ID), "failed borrow must not take a copy")
}

func TestBorrowNoCopiesAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, "dune", 1)

	winner := env.seedPatron(t, "alice")
	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: winner.ID, ItemID: item.ID})
	require.NoError(t, err)

	// Every later attempt loses the conditional decrement, not a pre-check.
	for _, name := range []string{"bob", "carol"} {
		p := env.seedPatron(t, name)
		_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: p.ID, ItemID: item.ID})
		assert.ErrorIs(t, err, ErrNoCopiesAvailable)
	}

	assert.Equal(t, 0, env.available(t, item.ID))
	env.checkInventoryInvariant(t, item.ID)
}

func TestBorrowLoanLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")

	for i := 0; i < env.policy.MaxActiveLoans; i++ {
		item := env.seedItem(t, "book-"+string(rune('a'+i)), 1)
		_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
		require.NoError(t, err)
	}

	extra := env.seedItem(t, "one-too-many", 1)
	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: extra.ID})
	assert.ErrorIs(t, err, ErrLoanLimitReached)
	assert.Equal(t, 1, env.available(t, extra.ID))
}

func TestBorrowBlockedByOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	first := env.seedItem(t, "dune", 1)

	record, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: first.ID})
	require.NoError(t, err)
	env.backdate(t, record.ID, time.Now().Add(-48*time.Hour))

	// The overdue state is derived from due_at; no sweep has run.
	second := env.seedItem(t, "hyperion", 1)
	_, err = env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: second.ID})
	assert.ErrorIs(t, err, ErrHasOverdue)
	assert.Equal(t, 1, env.available(t, second.ID))
}

func TestReserve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	record, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusReserved), record.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, env.policy.ReservationDays), record.DueAt, time.Minute)
	assert.Equal(t, 0, env.available(t, item.ID), "a hold takes the copy out of the pool immediately")
	env.checkInventoryInvariant(t, item.ID)
}

func TestReserveDuplicateHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 3)

	_, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	_, err = env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	assert.ErrorIs(t, err, ErrDuplicateHold)
	assert.Equal(t, 2, env.available(t, item.ID))
}

func TestConfirmReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	hold, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	record, err := env.circulation.Confirm(ctx, hold.ID)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusBorrowed), record.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, env.policy.LoanDays), record.DueAt, time.Minute)
	// The copy was already held; confirming must not take a second one.
	assert.Equal(t, 0, env.available(t, item.ID))
	env.checkInventoryInvariant(t, item.ID)
}

func TestConfirmNotAReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	_, err = env.circulation.Confirm(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrNotAReservation)
}

func TestConfirmLapsedHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	hold, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	env.backdate(t, hold.ID, time.Now().Add(-time.Hour))

	_, err = env.circulation.Confirm(ctx, hold.ID)
	assert.ErrorIs(t, err, ErrHoldExpired)

	// Confirm must not mutate the record on failure; the sweep owns expiry.
	stored, err := env.loanRepo.GetByID(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusReserved), stored.Status)
}

func TestRenew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	originalDue := loan.DueAt

	renewed, err := env.circulation.Renew(ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, renewed.RenewalCount)
	assert.Equal(t, originalDue.AddDate(0, 0, env.policy.RenewalExtensionDays).Unix(), renewed.DueAt.Unix())
	assert.Equal(t, string(domain.StatusBorrowed), renewed.Status)
}

func TestRenewCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	for i := 0; i < env.policy.RenewalCap; i++ {
		_, err := env.circulation.Renew(ctx, loan.ID)
		require.NoError(t, err)
	}

	_, err = env.circulation.Renew(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrRenewalCapReached)
}

func TestRenewOverdueLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	env.backdate(t, loan.ID, time.Now().Add(-time.Hour))

	_, err = env.circulation.Renew(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrLoanOverdue)
}

func TestRenewClosedLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.circulation.Renew(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
}

func TestReturnOnTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	record, err := env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusReturned), record.Status)
	assert.NotNil(t, record.ReturnedAt)
	assert.Zero(t, record.Fine.Amount)
	assert.Equal(t, 1, env.available(t, item.ID))
	env.checkInventoryInvariant(t, item.ID)
}

func TestReturnLateAppliesFine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	// Due five full days ago (plus an hour of slack against rounding).
	dueAt := time.Now().Add(-(5*24 + 1) * time.Hour)
	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID, DueAt: &dueAt})
	require.NoError(t, err)

	record, err := env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, 5*env.policy.DailyFineRate, record.Fine.Amount)
	assert.False(t, record.Fine.Paid)
	assert.Contains(t, record.Notes, "5 day(s) late")
}

func TestReturnTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.circulation.Return(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	assert.Equal(t, 1, env.available(t, item.ID), "the copy must be released exactly once")
}

func TestReturnCancelsPendingHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	hold, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	record, err := env.circulation.Return(ctx, hold.ID)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusReturned), record.Status)
	assert.Zero(t, record.Fine.Amount, "cancelling a hold never fines the patron")
	assert.Contains(t, record.Notes, "cancelled")
	assert.Equal(t, 1, env.available(t, item.ID))
}

func TestPayFine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	dueAt := time.Now().Add(-25 * time.Hour)
	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID, DueAt: &dueAt})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	record, err := env.circulation.PayFine(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, record.Fine.Paid)
	assert.NotNil(t, record.Fine.PaidAt)
	assert.Equal(t, env.policy.DailyFineRate, record.Fine.Amount, "payment must not recompute the amount")

	_, err = env.circulation.PayFine(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrFineAlreadyPaid)
}

func TestPayFineNoFineDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.circulation.PayFine(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrNoFineDue)
}

func TestListOverdueIsDerived(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 2)

	late, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	env.backdate(t, late.ID, time.Now().Add(-time.Hour))

	other := env.seedPatron(t, "bob")
	_, err = env.circulation.Borrow(ctx, &BorrowInput{PatronID: other.ID, ItemID: item.ID})
	require.NoError(t, err)

	// No sweep has persisted OVERDUE, yet the listing reports the late loan.
	overdue, err := env.circulation.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.Equal(t, string(domain.StatusBorrowed), overdue[0].Status, "persisted status lags until the sweep")
}

func TestResponseCarriesEffectiveStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	record, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	env.backdate(t, record.ID, time.Now().Add(-48*time.Hour))

	// No sweep has run: the row still says BORROWED, but any read of the
	// record must report it overdue.
	loaded, err := env.circulation.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusBorrowed), loaded.Status)
	assert.Equal(t, string(domain.StatusOverdue), loaded.ToResponse().Status)

	hold, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: env.seedPatron(t, "bob").ID, ItemID: env.seedItem(t, "emma", 1).ID})
	require.NoError(t, err)
	env.backdate(t, hold.ID, time.Now().Add(-time.Hour))
	lapsed, err := env.circulation.Get(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusExpired), lapsed.ToResponse().Status)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.seedPatron(t, "alice")
	bob := env.seedPatron(t, "bob")
	item := env.seedItem(t, "dune", 5)

	loanA, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: alice.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Borrow(ctx, &BorrowInput{PatronID: bob.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loanA.ID)
	require.NoError(t, err)

	byPatron, err := env.circulation.List(ctx, &ListInput{PatronID: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byPatron.Total)

	byStatus, err := env.circulation.List(ctx, &ListInput{Status: string(domain.StatusBorrowed)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byStatus.Total)

	all, err := env.circulation.List(ctx, &ListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
}

func TestRemoveActiveLoanReleasesCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	require.Equal(t, 0, env.available(t, item.ID))

	require.NoError(t, env.circulation.Remove(ctx, loan.ID))

	assert.Equal(t, 1, env.available(t, item.ID))
	_, err = env.circulation.Get(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestRemoveClosedLoanLeavesInventoryAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	require.NoError(t, env.circulation.Remove(ctx, loan.ID))
	assert.Equal(t, 1, env.available(t, item.ID), "a closed record holds no copy to release")
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.seedPatron(t, "alice")
	bob := env.seedPatron(t, "bob")
	item := env.seedItem(t, "dune", 5)

	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: alice.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Reserve(ctx, &ReserveInput{PatronID: bob.ID, ItemID: item.ID})
	require.NoError(t, err)

	dueAt := time.Now().Add(-25 * time.Hour)
	late, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: bob.ID, ItemID: item.ID, DueAt: &dueAt})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, late.ID)
	require.NoError(t, err)

	stats, err := env.circulation.GetStats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.ActiveLoans)
	assert.EqualValues(t, 1, stats.Reservations)
	assert.EqualValues(t, 0, stats.Overdue)
	assert.EqualValues(t, 1, stats.UnpaidFines)
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	hold, err := env.circulation.Reserve(ctx, &ReserveInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	env.checkInventoryInvariant(t, item.ID)

	loan, err := env.circulation.Confirm(ctx, hold.ID)
	require.NoError(t, err)
	env.checkInventoryInvariant(t, item.ID)

	_, err = env.circulation.Renew(ctx, loan.ID)
	require.NoError(t, err)

	record, err := env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)
	env.checkInventoryInvariant(t, item.ID)

	assert.Equal(t, string(domain.StatusReturned), record.Status)
	assert.Equal(t, 1, record.RenewalCount)
	assert.Equal(t, 1, env.available(t, item.ID))
}
