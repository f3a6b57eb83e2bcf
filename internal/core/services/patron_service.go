package services

import (
	"context"
	"errors"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/core/domain"

	"gorm.io/gorm"
)

// Patron service errors
var (
	ErrInvalidRole = errors.New("invalid role")
)

// PatronService handles patron registry business logic
type PatronService struct {
	patronRepo *repositories.PatronRepository
	loanRepo   *repositories.LoanRepository
}

// NewPatronService creates a new patron service
func NewPatronService(patronRepo *repositories.PatronRepository, loanRepo *repositories.LoanRepository) *PatronService {
	return &PatronService{
		patronRepo: patronRepo,
		loanRepo:   loanRepo,
	}
}

// Get returns a patron by ID
func (s *PatronService) Get(ctx context.Context, id uint) (*models.Patron, error) {
	patron, err := s.patronRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatronNotFound
		}
		return nil, err
	}
	return patron, nil
}

// ListPatronsInput represents patron list input
type ListPatronsInput struct {
	Page   int
	Limit  int
	Search string
}

// ListPatronsOutput represents patron list output
type ListPatronsOutput struct {
	Patrons    []*models.PatronResponse `json:"patrons"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

// List lists patrons with optional search
func (s *PatronService) List(ctx context.Context, input *ListPatronsInput) (*ListPatronsOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit
	patrons, total, err := s.patronRepo.List(ctx, input.Search, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.PatronResponse, 0, len(patrons))
	for _, p := range patrons {
		responses = append(responses, p.ToResponse())
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListPatronsOutput{
		Patrons:    responses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateProfileInput represents profile update input
type UpdateProfileInput struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateProfile updates a patron's own descriptive fields
func (s *PatronService) UpdateProfile(ctx context.Context, id uint, input *UpdateProfileInput) (*models.Patron, error) {
	patron, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		patron.Name = input.Name
	}
	if input.Phone != "" {
		patron.Phone = input.Phone
	}
	if err := s.patronRepo.Update(ctx, patron); err != nil {
		return nil, err
	}
	return patron, nil
}

// ChangeRole changes a patron's role (admin operation)
func (s *PatronService) ChangeRole(ctx context.Context, id uint, role string) (*models.Patron, error) {
	switch domain.Role(role) {
	case domain.RoleAdmin, domain.RoleLibrarian, domain.RoleMember:
	default:
		return nil, ErrInvalidRole
	}

	patron, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patron.Role = role
	if err := s.patronRepo.Update(ctx, patron); err != nil {
		return nil, err
	}
	return patron, nil
}

// SetActive toggles a patron's active flag (admin operation). Deactivation
// does not touch the patron's existing loans; it only blocks new borrowing.
func (s *PatronService) SetActive(ctx context.Context, id uint, active bool) (*models.Patron, error) {
	patron, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patron.Active = active
	if err := s.patronRepo.Update(ctx, patron); err != nil {
		return nil, err
	}
	return patron, nil
}

// ActiveLoans lists the records currently holding a copy for the patron
func (s *PatronService) ActiveLoans(ctx context.Context, id uint) ([]*models.LoanRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.loanRepo.ListActiveByPatron(ctx, id)
}
