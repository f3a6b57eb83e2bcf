package services

import (
	"context"
	"errors"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Catalog service errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrISBNAlreadyUsed  = errors.New("an item with this ISBN already exists")
	ErrItemHasLoans     = errors.New("item has active loans or holds")
	ErrCategoryHasItems = errors.New("category still has items")
	ErrCategoryNameUsed = errors.New("a category with this name already exists")
)

// CatalogService handles catalog item business logic. It owns descriptive
// metadata; the copy counters belong to the circulation engine, and the only
// way metadata edits touch them is the explicit resize path.
type CatalogService struct {
	db           *gorm.DB
	itemRepo     *repositories.ItemRepository
	categoryRepo *repositories.CategoryRepository
	loanRepo     *repositories.LoanRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	db *gorm.DB,
	itemRepo *repositories.ItemRepository,
	categoryRepo *repositories.CategoryRepository,
	loanRepo *repositories.LoanRepository,
) *CatalogService {
	return &CatalogService{
		db:           db,
		itemRepo:     itemRepo,
		categoryRepo: categoryRepo,
		loanRepo:     loanRepo,
	}
}

// CreateItemInput represents create item input
type CreateItemInput struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	ISBN            string `json:"isbn" validate:"required"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publication_year"`
	CategoryID      uint   `json:"category_id" validate:"required"`
	TotalCopies     int    `json:"total_copies" validate:"gte=0"`
	Description     string `json:"description,omitempty"`
	Shelf           string `json:"shelf,omitempty"`
	Section         string `json:"section,omitempty"`
}

// CreateItem adds a new item to the catalog. New items start with every copy
// on the shelf.
func (s *CatalogService) CreateItem(ctx context.Context, input *CreateItemInput) (*models.Item, error) {
	if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if _, err := s.itemRepo.GetByISBN(ctx, input.ISBN); err == nil {
		return nil, ErrISBNAlreadyUsed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	total := input.TotalCopies
	if total < 1 {
		total = 1
	}

	item := &models.Item{
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            input.ISBN,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		CategoryID:      input.CategoryID,
		TotalCopies:     total,
		AvailableCopies: total,
		Description:     input.Description,
		Shelf:           input.Shelf,
		Section:         input.Section,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return s.itemRepo.GetByID(ctx, item.ID)
}

// GetItem returns a catalog item by ID
func (s *CatalogService) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListItemsInput represents catalog list input
type ListItemsInput struct {
	Page       int
	Limit      int
	CategoryID *uint
	Available  *bool
	Search     string
}

// ListItemsOutput represents catalog list output
type ListItemsOutput struct {
	Items      []*models.Item `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// ListItems lists catalog items with filters and pagination
func (s *CatalogService) ListItems(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	filter := &repositories.ItemFilter{
		CategoryID: input.CategoryID,
		Available:  input.Available,
		Search:     input.Search,
	}

	offset := (input.Page - 1) * input.Limit
	items, total, err := s.itemRepo.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListItemsOutput{
		Items:      items,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateItemInput represents update item input. TotalCopies is handled by
// the resize path; all other fields are plain metadata.
type UpdateItemInput struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	CategoryID      uint   `json:"category_id,omitempty"`
	TotalCopies     *int   `json:"total_copies,omitempty"`
	Description     string `json:"description,omitempty"`
	Shelf           string `json:"shelf,omitempty"`
	Section         string `json:"section,omitempty"`
}

// UpdateItem updates an item's metadata, routing total-copy changes through
// the inventory resize so the available pool is rescaled, never clobbered.
func (s *CatalogService) UpdateItem(ctx context.Context, id uint, input *UpdateItemInput) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if input.CategoryID != 0 && input.CategoryID != item.CategoryID {
		if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		item.CategoryID = input.CategoryID
	}

	if input.Title != "" {
		item.Title = input.Title
	}
	if input.Author != "" {
		item.Author = input.Author
	}
	if input.ISBN != "" && input.ISBN != item.ISBN {
		if _, err := s.itemRepo.GetByISBN(ctx, input.ISBN); err == nil {
			return nil, ErrISBNAlreadyUsed
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		item.ISBN = input.ISBN
	}
	if input.Publisher != "" {
		item.Publisher = input.Publisher
	}
	if input.PublicationYear != 0 {
		item.PublicationYear = input.PublicationYear
	}
	if input.Description != "" {
		item.Description = input.Description
	}
	if input.Shelf != "" {
		item.Shelf = input.Shelf
	}
	if input.Section != "" {
		item.Section = input.Section
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		items := s.itemRepo.WithTx(tx)
		if err := items.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		if input.TotalCopies != nil && *input.TotalCopies != item.TotalCopies {
			newTotal := *input.TotalCopies
			if newTotal < 0 {
				newTotal = 0
			}
			return items.Resize(ctx, id, newTotal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.itemRepo.GetByID(ctx, id)
}

// DeleteItem removes an item from the catalog. Items with records still
// holding a copy cannot be deleted.
func (s *CatalogService) DeleteItem(ctx context.Context, id uint) error {
	if _, err := s.itemRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	active, err := s.loanRepo.CountActiveByItem(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrItemHasLoans
	}

	return s.itemRepo.Delete(ctx, id)
}

// CreateCategoryInput represents create category input
type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// CreateCategory adds a new category
func (s *CatalogService) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*models.Category, error) {
	if _, err := s.categoryRepo.GetByName(ctx, input.Name); err == nil {
		return nil, ErrCategoryNameUsed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &models.Category{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory returns a category by ID
func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// ListCategories lists all categories
func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// UpdateCategory updates a category's name and description
func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, input *CreateCategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if input.Name != "" {
		category.Name = input.Name
	}
	if input.Description != "" {
		category.Description = input.Description
	}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category. Categories still referenced by catalog
// items cannot be deleted.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	count, err := s.categoryRepo.CountItems(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryHasItems
	}

	return s.categoryRepo.Delete(ctx, id)
}

// ListItemsByCategory lists the items in a category
func (s *CatalogService) ListItemsByCategory(ctx context.Context, categoryID uint) ([]*models.Item, error) {
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return s.itemRepo.ListByCategory(ctx, categoryID)
}
