package handlers

import (
	"errors"

	"biblios/internal/core/domain"
	"biblios/internal/core/services"
	"biblios/internal/pkg/pagination"
	"biblios/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PatronHandler handles patron registry endpoints
type PatronHandler struct {
	patronService *services.PatronService
}

// NewPatronHandler creates a new patron handler
func NewPatronHandler(patronService *services.PatronService) *PatronHandler {
	return &PatronHandler{patronService: patronService}
}

// Get returns a patron
// @Summary Get patron
// @Description Get a patron by ID
// @Tags Patrons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id} [get]
func (h *PatronHandler) Get(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	patron, err := h.patronService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to get patron")
	}

	return response.Success(c, "Patron retrieved successfully", patron.ToResponse())
}

// List returns patrons matching the query
// @Summary List patrons
// @Description List patrons with optional search
// @Tags Patrons
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param search query string false "Name, email or document search"
// @Success 200 {object} response.Response
// @Router /patrons [get]
func (h *PatronHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	result, err := h.patronService.List(c.Context(), &services.ListPatronsInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Search: c.Query("search"),
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to list patrons")
	}

	meta := pagination.GetMeta(&pagination.Params{Page: result.Page, Limit: result.Limit}, result.Total)
	return response.Paginated(c, "Patrons retrieved successfully", result.Patrons, meta)
}

// UpdateProfile updates a patron's descriptive fields
// @Summary Update patron profile
// @Description Update a patron's name and phone
// @Tags Patrons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Param body body services.UpdateProfileInput true "Profile data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id} [put]
func (h *PatronHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	// Members may only edit their own profile
	role, _ := c.Locals("role").(string)
	if selfID, ok := c.Locals("patronID").(uint); ok {
		if role == string(domain.RoleMember) && selfID != id {
			return response.Forbidden(c, "You can only update your own profile")
		}
	}

	var req services.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	patron, err := h.patronService.UpdateProfile(c.Context(), id, &req)
	if err != nil {
		return h.mapError(c, err, "Failed to update patron")
	}

	return response.Success(c, "Patron updated successfully", patron.ToResponse())
}

// ChangeRoleRequest represents a role change request body
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole changes a patron's role
// @Summary Change patron role
// @Description Change a patron's role (ADMIN only)
// @Tags Patrons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Param body body ChangeRoleRequest true "Role data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id}/role [patch]
func (h *PatronHandler) ChangeRole(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	patron, err := h.patronService.ChangeRole(c.Context(), id, req.Role)
	if err != nil {
		return h.mapError(c, err, "Failed to change role")
	}

	return response.Success(c, "Role changed successfully", patron.ToResponse())
}

// SetActiveRequest represents an activation request body
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive activates or deactivates a patron account
// @Summary Set patron active flag
// @Description Activate or deactivate a patron account
// @Tags Patrons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Param body body SetActiveRequest true "Active flag"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id}/active [patch]
func (h *PatronHandler) SetActive(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	patron, err := h.patronService.SetActive(c.Context(), id, req.Active)
	if err != nil {
		return h.mapError(c, err, "Failed to update patron")
	}

	return response.Success(c, "Patron updated successfully", patron.ToResponse())
}

// ActiveLoans returns a patron's open loan records
// @Summary List patron's active loans
// @Description List a patron's reserved, borrowed and overdue records
// @Tags Patrons
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id}/active-loans [get]
func (h *PatronHandler) ActiveLoans(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	records, err := h.patronService.ActiveLoans(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to list active loans")
	}

	return response.Success(c, "Active loans retrieved successfully", toResponses(records))
}

func (h *PatronHandler) mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrPatronNotFound):
		return response.NotFound(c, "Patron not found")
	case errors.Is(err, services.ErrInvalidRole):
		return response.BadRequest(c, "Invalid role")
	default:
		return response.InternalServerError(c, fallback)
	}
}
