package repositories

import (
	"context"

	"biblios/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// PatronRepository handles patron data access
type PatronRepository struct {
	db *gorm.DB
}

// NewPatronRepository creates a new patron repository
func NewPatronRepository(db *gorm.DB) *PatronRepository {
	return &PatronRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PatronRepository) WithTx(tx *gorm.DB) *PatronRepository {
	return &PatronRepository{db: tx}
}

// Create creates a new patron
func (r *PatronRepository) Create(ctx context.Context, patron *models.Patron) error {
	return r.db.WithContext(ctx).Create(patron).Error
}

// GetByID gets a patron by ID
func (r *PatronRepository) GetByID(ctx context.Context, id uint) (*models.Patron, error) {
	var patron models.Patron
	err := r.db.WithContext(ctx).First(&patron, id).Error
	if err != nil {
		return nil, err
	}
	return &patron, nil
}

// GetByEmail gets a patron by email
func (r *PatronRepository) GetByEmail(ctx context.Context, email string) (*models.Patron, error) {
	var patron models.Patron
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&patron).Error
	if err != nil {
		return nil, err
	}
	return &patron, nil
}

// ExistsByEmail reports whether a patron with the given email exists
func (r *PatronRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Patron{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// ExistsByDocument reports whether a patron with the given document exists
func (r *PatronRepository) ExistsByDocument(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Patron{}).
		Where("document_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// IsActive reports whether the patron exists and is active. This is the only
// coupling the circulation engine has to the registry.
func (r *PatronRepository) IsActive(ctx context.Context, id uint) (bool, error) {
	var patron models.Patron
	err := r.db.WithContext(ctx).Select("active").First(&patron, id).Error
	if err != nil {
		return false, err
	}
	return patron.Active, nil
}

// List lists patrons with optional search and pagination
func (r *PatronRepository) List(ctx context.Context, search string, offset, limit int) ([]*models.Patron, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Patron{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var patrons []*models.Patron
	err := query.
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&patrons).Error

	return patrons, total, err
}

// Update saves a patron
func (r *PatronRepository) Update(ctx context.Context, patron *models.Patron) error {
	return r.db.WithContext(ctx).Save(patron).Error
}
