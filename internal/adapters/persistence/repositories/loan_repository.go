package repositories

import (
	"context"
	"time"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/core/domain"

	"gorm.io/gorm"
)

// activeStatuses are the statuses under which a record still holds a copy.
var activeStatuses = []string{
	string(domain.StatusReserved),
	string(domain.StatusBorrowed),
	string(domain.StatusOverdue),
}

// borrowedStatuses are the statuses that count against the loan limit.
var borrowedStatuses = []string{
	string(domain.StatusBorrowed),
	string(domain.StatusOverdue),
}

// LoanRepository handles loan ledger data access
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LoanRepository) WithTx(tx *gorm.DB) *LoanRepository {
	return &LoanRepository{db: tx}
}

// Create appends a new record to the ledger
func (r *LoanRepository) Create(ctx context.Context, record *models.LoanRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID gets a loan record with its patron and item
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.LoanRecord, error) {
	var record models.LoanRecord
	err := r.db.WithContext(ctx).
		Preload("Patron").
		Preload("Item").
		First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByIDForUpdate gets a loan record under a row-level write lock, guarding
// against concurrent double-returns and double-renewals.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.LoanRecord, error) {
	var record models.LoanRecord
	err := lockForUpdate(r.db.WithContext(ctx)).First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update saves a loan record
func (r *LoanRepository) Update(ctx context.Context, record *models.LoanRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// LockActiveByPatron reads the patron's active records under a write lock so
// concurrent borrow attempts by the same patron serialize on them.
func (r *LoanRepository) LockActiveByPatron(ctx context.Context, patronID uint) ([]*models.LoanRecord, error) {
	var records []*models.LoanRecord
	err := lockForUpdate(r.db.WithContext(ctx)).
		Where("patron_id = ? AND status IN ? AND returned_at IS NULL", patronID, activeStatuses).
		Find(&records).Error
	return records, err
}

// CountActiveByItem counts records currently holding a copy of the item.
func (r *LoanRepository) CountActiveByItem(ctx context.Context, itemID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LoanRecord{}).
		Where("item_id = ? AND status IN ? AND returned_at IS NULL", itemID, activeStatuses).
		Count(&count).Error
	return count, err
}

// ListActiveByPatron lists the patron's records that still hold a copy
func (r *LoanRepository) ListActiveByPatron(ctx context.Context, patronID uint) ([]*models.LoanRecord, error) {
	var records []*models.LoanRecord
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("patron_id = ? AND status IN ? AND returned_at IS NULL", patronID, activeStatuses).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListByPatron lists all records for a patron, newest first
func (r *LoanRepository) ListByPatron(ctx context.Context, patronID uint, status string) ([]*models.LoanRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Item").
		Where("patron_id = ?", patronID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []*models.LoanRecord
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// ListByItem lists all records for an item, newest first
func (r *LoanRepository) ListByItem(ctx context.Context, itemID uint, status string) ([]*models.LoanRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Patron").
		Where("item_id = ?", itemID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []*models.LoanRecord
	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// ListOverdue lists records past due at the given instant, oldest due first.
// Derived condition: a Borrowed record past its due date is overdue whether
// or not the sweep has persisted the status yet.
func (r *LoanRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.LoanRecord, error) {
	var records []*models.LoanRecord
	err := r.db.WithContext(ctx).
		Preload("Patron").
		Preload("Item").
		Where("status IN ? AND returned_at IS NULL AND due_at < ?", borrowedStatuses, now).
		Order("due_at ASC").
		Find(&records).Error
	return records, err
}

// ListExpiredReservations lists reservations whose hold window has lapsed.
func (r *LoanRepository) ListExpiredReservations(ctx context.Context, now time.Time) ([]*models.LoanRecord, error) {
	var records []*models.LoanRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at < ?", string(domain.StatusReserved), now).
		Order("due_at ASC").
		Find(&records).Error
	return records, err
}

// ListPastDueBorrowed lists Borrowed records past due whose persisted status
// has not caught up yet (sweep input).
func (r *LoanRepository) ListPastDueBorrowed(ctx context.Context, now time.Time) ([]*models.LoanRecord, error) {
	var records []*models.LoanRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND returned_at IS NULL AND due_at < ?", string(domain.StatusBorrowed), now).
		Find(&records).Error
	return records, err
}

// LoanFilter narrows ledger listings
type LoanFilter struct {
	Status   string
	PatronID *uint
	ItemID   *uint
	From     *time.Time
	To       *time.Time
}

// List lists ledger records matching the filter, newest first, paginated
func (r *LoanRepository) List(ctx context.Context, filter *LoanFilter, offset, limit int) ([]*models.LoanRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LoanRecord{})
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.PatronID != nil {
			query = query.Where("patron_id = ?", *filter.PatronID)
		}
		if filter.ItemID != nil {
			query = query.Where("item_id = ?", *filter.ItemID)
		}
		if filter.From != nil {
			query = query.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("created_at <= ?", *filter.To)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*models.LoanRecord
	err := query.
		Preload("Patron").
		Preload("Item").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error

	return records, total, err
}

// CountByStatus counts ledger records with the given persisted status.
func (r *LoanRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LoanRecord{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// CountUnpaidFines counts records carrying an unpaid fine.
func (r *LoanRepository) CountUnpaidFines(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LoanRecord{}).
		Where("fine_amount > 0 AND fine_paid = ?", false).
		Count(&count).Error
	return count, err
}

// Delete hard-deletes a ledger record. The ledger keeps full history in
// normal operation; this exists only for the administrative remove, whose
// inventory reversal is the circulation engine's responsibility.
func (r *LoanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.LoanRecord{}, id).Error
}
