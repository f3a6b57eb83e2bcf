package repositories

import (
	"context"

	"biblios/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a row-level write lock to the query. SQLite (used by the
// test suite) has a single writer and rejects FOR UPDATE, so the clause is
// only applied on dialects that support it.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// ItemRepository handles catalog item data access, including the inventory
// counters. AvailableCopies is only ever moved through ReserveCopy,
// ReleaseCopy and Resize so the counted pool cannot drift from the ledger.
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	return &ItemRepository{db: tx}
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID gets an item by ID with its category
func (r *ItemRepository) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		Preload("Category").
		First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByISBN gets an item by ISBN
func (r *ItemRepository) GetByISBN(ctx context.Context, isbn string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Exists reports whether an item with the given ID exists
func (r *ItemRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// GetAvailable returns the current available-copy count for an item
func (r *ItemRepository) GetAvailable(ctx context.Context, id uint) (int, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Select("available_copies").First(&item, id).Error
	if err != nil {
		return 0, err
	}
	return item.AvailableCopies, nil
}

// ReserveCopy atomically decrements available_copies iff at least one copy
// remains, and reports whether a copy was taken. A false result is a normal
// outcome (no copies left), not an error. The conditional UPDATE makes
// concurrent takes of the last copy linearizable at the datastore.
func (r *ItemRepository) ReserveCopy(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseCopy atomically increments available_copies, clamped to total_copies.
func (r *ItemRepository) ReleaseCopy(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND available_copies < total_copies", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1")).Error
}

// Resize changes an item's total copy count, rescaling the available pool.
// Increases add the new copies straight to the shelf; decreases scale the
// available count proportionally, floor-rounded and clamped to zero.
func (r *ItemRepository) Resize(ctx context.Context, id uint, newTotal int) error {
	var item models.Item
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&item, id).Error; err != nil {
		return err
	}

	available := item.AvailableCopies
	switch {
	case newTotal > item.TotalCopies:
		available += newTotal - item.TotalCopies
	case newTotal < item.TotalCopies:
		if item.TotalCopies > 0 {
			ratio := float64(item.AvailableCopies) / float64(item.TotalCopies)
			available = int(float64(newTotal) * ratio)
		} else {
			available = newTotal
		}
	}
	if available < 0 {
		available = 0
	}
	if available > newTotal {
		available = newTotal
	}

	return r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_copies":     newTotal,
			"available_copies": available,
		}).Error
}

// ItemFilter narrows catalog listings
type ItemFilter struct {
	CategoryID *uint
	Available  *bool
	Search     string
}

// List lists items with optional filters and pagination
func (r *ItemRepository) List(ctx context.Context, filter *ItemFilter, offset, limit int) ([]*models.Item, int64, error) {
	var items []*models.Item
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Item{})
	if filter != nil {
		if filter.CategoryID != nil {
			query = query.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.Available != nil {
			if *filter.Available {
				query = query.Where("available_copies > 0")
			} else {
				query = query.Where("available_copies = 0")
			}
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			query = query.Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", like, like, like)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Category").
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// ListByCategory lists items belonging to a category
func (r *ItemRepository) ListByCategory(ctx context.Context, categoryID uint) ([]*models.Item, error) {
	var items []*models.Item
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("title ASC").
		Find(&items).Error
	return items, err
}

// UpdateMetadata updates descriptive fields only. The copy counters are
// deliberately excluded; TotalCopies changes must go through Resize.
func (r *ItemRepository) UpdateMetadata(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Model(item).
		Select("title", "author", "isbn", "publisher", "publication_year",
			"category_id", "description", "shelf", "section").
		Updates(item).Error
}

// Delete soft deletes an item
func (r *ItemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Item{}, id).Error
}
