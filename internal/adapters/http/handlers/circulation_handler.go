package handlers

import (
	"errors"
	"strconv"
	"time"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/core/services"
	"biblios/internal/pkg/pagination"
	"biblios/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CirculationHandler handles the loan ledger endpoints
type CirculationHandler struct {
	circulationService *services.CirculationService
}

// NewCirculationHandler creates a new circulation handler
func NewCirculationHandler(circulationService *services.CirculationService) *CirculationHandler {
	return &CirculationHandler{circulationService: circulationService}
}

// BorrowRequest represents a checkout request body
type BorrowRequest struct {
	PatronID uint       `json:"patron_id"`
	ItemID   uint       `json:"item_id"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// ReserveRequest represents a hold request body
type ReserveRequest struct {
	PatronID uint `json:"patron_id"`
	ItemID   uint `json:"item_id"`
}

// Borrow checks an item out to a patron
// @Summary Borrow an item
// @Description Check a copy of an item out to a patron
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BorrowRequest true "Checkout data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans [post]
func (h *CirculationHandler) Borrow(c *fiber.Ctx) error {
	var req BorrowRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PatronID == 0 {
		return response.BadRequest(c, "Patron ID is required")
	}
	if req.ItemID == 0 {
		return response.BadRequest(c, "Item ID is required")
	}

	record, err := h.circulationService.Borrow(c.Context(), &services.BorrowInput{
		PatronID: req.PatronID,
		ItemID:   req.ItemID,
		DueAt:    req.DueAt,
	})
	if err != nil {
		return h.mapError(c, err, "Failed to borrow item")
	}

	return response.Created(c, "Item borrowed successfully", record.ToResponse())
}

// Reserve places a hold on an item
// @Summary Reserve an item
// @Description Place a hold on a copy of an item for a patron
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ReserveRequest true "Hold data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/reserve [post]
func (h *CirculationHandler) Reserve(c *fiber.Ctx) error {
	var req ReserveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PatronID == 0 {
		return response.BadRequest(c, "Patron ID is required")
	}
	if req.ItemID == 0 {
		return response.BadRequest(c, "Item ID is required")
	}

	record, err := h.circulationService.Reserve(c.Context(), &services.ReserveInput{
		PatronID: req.PatronID,
		ItemID:   req.ItemID,
	})
	if err != nil {
		return h.mapError(c, err, "Failed to reserve item")
	}

	return response.Created(c, "Item reserved successfully", record.ToResponse())
}

// Confirm converts a reservation into an active loan
// @Summary Confirm a reservation
// @Description Convert a hold into an active loan at pickup
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/confirm [patch]
func (h *CirculationHandler) Confirm(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	record, err := h.circulationService.Confirm(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to confirm reservation")
	}

	return response.Success(c, "Reservation confirmed successfully", record.ToResponse())
}

// Renew extends a loan's due date
// @Summary Renew a loan
// @Description Extend an active loan's due date
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/renew [patch]
func (h *CirculationHandler) Renew(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	record, err := h.circulationService.Renew(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to renew loan")
	}

	return response.Success(c, "Loan renewed successfully", record.ToResponse())
}

// Return closes a loan and releases the copy
// @Summary Return an item
// @Description Close a loan record, assess any fine and release the copy
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/return [patch]
func (h *CirculationHandler) Return(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	record, err := h.circulationService.Return(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to return item")
	}

	return response.Success(c, "Item returned successfully", record.ToResponse())
}

// PayFine settles the fine on a closed loan
// @Summary Pay a fine
// @Description Mark the fine on a loan record as paid
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/pay-fine [patch]
func (h *CirculationHandler) PayFine(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	record, err := h.circulationService.PayFine(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to pay fine")
	}

	return response.Success(c, "Fine paid successfully", record.ToResponse())
}

// Get returns a single loan record
// @Summary Get loan record
// @Description Get a loan record by ID with its effective status
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *CirculationHandler) Get(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	record, err := h.circulationService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to get loan record")
	}

	return response.Success(c, "Loan record retrieved successfully", record.ToResponse())
}

// List returns ledger records matching the query filters
// @Summary List loan records
// @Description List ledger records filtered by status, patron, item and date range
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "Status filter"
// @Param patron_id query int false "Patron filter"
// @Param item_id query int false "Item filter"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *CirculationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	input := &services.ListInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: c.Query("status"),
	}
	if v, err := strconv.ParseUint(c.Query("patron_id"), 10, 32); err == nil && v > 0 {
		id := uint(v)
		input.PatronID = &id
	}
	if v, err := strconv.ParseUint(c.Query("item_id"), 10, 32); err == nil && v > 0 {
		id := uint(v)
		input.ItemID = &id
	}
	if t, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		input.From = &t
	}
	if t, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		input.To = &t
	}

	result, err := h.circulationService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loan records")
	}

	meta := pagination.GetMeta(&pagination.Params{Page: result.Page, Limit: result.Limit}, result.Total)
	return response.Paginated(c, "Loan records retrieved successfully", toResponses(result.Records), meta)
}

// ListByPatron returns a patron's loan history
// @Summary List loans by patron
// @Description List all loan records belonging to a patron
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Patron ID"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patrons/{id}/loans [get]
func (h *CirculationHandler) ListByPatron(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid patron ID")
	}

	records, err := h.circulationService.ListByPatron(c.Context(), id, c.Query("status"))
	if err != nil {
		return h.mapError(c, err, "Failed to list patron loans")
	}

	return response.Success(c, "Loan records retrieved successfully", toResponses(records))
}

// ListByItem returns an item's loan history
// @Summary List loans by item
// @Description List all loan records against an item
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /items/{id}/loans [get]
func (h *CirculationHandler) ListByItem(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid item ID")
	}

	records, err := h.circulationService.ListByItem(c.Context(), id, c.Query("status"))
	if err != nil {
		return h.mapError(c, err, "Failed to list item loans")
	}

	return response.Success(c, "Loan records retrieved successfully", toResponses(records))
}

// ListOverdue returns all currently overdue loans
// @Summary List overdue loans
// @Description List all loans past their due date and not yet returned
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/overdue [get]
func (h *CirculationHandler) ListOverdue(c *fiber.Ctx) error {
	records, err := h.circulationService.ListOverdue(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list overdue loans")
	}

	return response.Success(c, "Overdue loans retrieved successfully", toResponses(records))
}

// Remove deletes a loan record
// @Summary Delete loan record
// @Description Delete a loan record, releasing its copy if still active
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [delete]
func (h *CirculationHandler) Remove(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid loan record ID")
	}

	if err := h.circulationService.Remove(c.Context(), id); err != nil {
		return h.mapError(c, err, "Failed to delete loan record")
	}

	return response.Success(c, "Loan record deleted successfully", nil)
}

// GetStats returns ledger counts for the staff dashboard
// @Summary Circulation statistics
// @Description Get counts of active loans, reservations, overdue loans and unpaid fines
// @Tags Circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/stats [get]
func (h *CirculationHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.circulationService.GetStats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get statistics")
	}

	return response.Success(c, "Statistics retrieved successfully", stats)
}

func (h *CirculationHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *CirculationHandler) mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrPatronNotFound):
		return response.NotFound(c, "Patron not found")
	case errors.Is(err, services.ErrItemNotFound):
		return response.NotFound(c, "Item not found")
	case errors.Is(err, services.ErrLoanNotFound):
		return response.NotFound(c, "Loan record not found")
	case errors.Is(err, services.ErrPatronInactive):
		return response.Forbidden(c, "Patron account is inactive")
	case errors.Is(err, services.ErrNoCopiesAvailable):
		return response.Conflict(c, "No copies of this item are available")
	case errors.Is(err, services.ErrHasOverdue):
		return response.Conflict(c, "Patron has overdue loans")
	case errors.Is(err, services.ErrLoanLimitReached):
		return response.Conflict(c, "Patron has reached the active loan limit")
	case errors.Is(err, services.ErrDuplicateHold):
		return response.Conflict(c, "Patron already has an active record for this item")
	case errors.Is(err, services.ErrNotAReservation):
		return response.Conflict(c, "Loan record is not a reservation")
	case errors.Is(err, services.ErrRenewalCapReached):
		return response.Conflict(c, "Maximum number of renewals reached")
	case errors.Is(err, services.ErrLoanOverdue):
		return response.Conflict(c, "Overdue loans cannot be renewed")
	case errors.Is(err, services.ErrAlreadyReturned):
		return response.Conflict(c, "Loan record is already closed")
	case errors.Is(err, services.ErrHoldExpired):
		return response.Conflict(c, "Reservation has expired")
	case errors.Is(err, services.ErrNoFineDue):
		return response.Conflict(c, "No fine due on this loan record")
	case errors.Is(err, services.ErrFineAlreadyPaid):
		return response.Conflict(c, "Fine has already been paid")
	default:
		return response.InternalServerError(c, fallback)
	}
}

func toResponses(records []*models.LoanRecord) []*models.LoanRecordResponse {
	out := make([]*models.LoanRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToResponse())
	}
	return out
}
