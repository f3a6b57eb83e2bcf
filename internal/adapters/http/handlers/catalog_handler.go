package handlers

import (
	"errors"
	"strconv"

	"biblios/internal/core/services"
	"biblios/internal/pkg/pagination"
	"biblios/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles catalog item and category endpoints
type CatalogHandler struct {
	catalogService *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateItem adds a new item to the catalog
// @Summary Create item
// @Description Add a new item to the catalog
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateItemInput true "Item data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /items [post]
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	var req services.CreateItemInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Title == "" {
		return response.BadRequest(c, "Title is required")
	}
	if req.Author == "" {
		return response.BadRequest(c, "Author is required")
	}
	if req.ISBN == "" {
		return response.BadRequest(c, "ISBN is required")
	}
	if req.CategoryID == 0 {
		return response.BadRequest(c, "Category ID is required")
	}
	if req.TotalCopies < 0 {
		return response.BadRequest(c, "Total copies cannot be negative")
	}

	item, err := h.catalogService.CreateItem(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Failed to create item")
	}

	return response.Created(c, "Item created successfully", item)
}

// GetItem returns a catalog item
// @Summary Get item
// @Description Get a catalog item by ID
// @Tags Catalog
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /items/{id} [get]
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid item ID")
	}

	item, err := h.catalogService.GetItem(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to get item")
	}

	return response.Success(c, "Item retrieved successfully", item)
}

// ListItems returns catalog items matching the query filters
// @Summary List items
// @Description List catalog items with search, category and availability filters
// @Tags Catalog
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param category_id query int false "Category filter"
// @Param available query bool false "Only items with available copies"
// @Param search query string false "Title, author or ISBN search"
// @Success 200 {object} response.Response
// @Router /items [get]
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	input := &services.ListItemsInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Search: c.Query("search"),
	}
	if v, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil && v > 0 {
		id := uint(v)
		input.CategoryID = &id
	}
	if c.Query("available") != "" {
		available := c.QueryBool("available")
		input.Available = &available
	}

	result, err := h.catalogService.ListItems(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list items")
	}

	meta := pagination.GetMeta(&pagination.Params{Page: result.Page, Limit: result.Limit}, result.Total)
	return response.Paginated(c, "Items retrieved successfully", result.Items, meta)
}

// UpdateItem updates a catalog item
// @Summary Update item
// @Description Update an item's metadata; total copy changes rescale availability
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Param body body services.UpdateItemInput true "Item data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /items/{id} [put]
func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid item ID")
	}

	var req services.UpdateItemInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.TotalCopies != nil && *req.TotalCopies < 0 {
		return response.BadRequest(c, "Total copies cannot be negative")
	}

	item, err := h.catalogService.UpdateItem(c.Context(), id, &req)
	if err != nil {
		return h.mapError(c, err, "Failed to update item")
	}

	return response.Success(c, "Item updated successfully", item)
}

// DeleteItem removes a catalog item
// @Summary Delete item
// @Description Delete an item that has no active loans
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /items/{id} [delete]
func (h *CatalogHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid item ID")
	}

	if err := h.catalogService.DeleteItem(c.Context(), id); err != nil {
		return h.mapError(c, err, "Failed to delete item")
	}

	return response.Success(c, "Item deleted successfully", nil)
}

// CreateCategory adds a new category
// @Summary Create category
// @Description Add a new catalog category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateCategoryInput true "Category data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /categories [post]
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req services.CreateCategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.BadRequest(c, "Name is required")
	}

	category, err := h.catalogService.CreateCategory(c.Context(), &req)
	if err != nil {
		return h.mapError(c, err, "Failed to create category")
	}

	return response.Created(c, "Category created successfully", category)
}

// GetCategory returns a category
// @Summary Get category
// @Description Get a category by ID
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [get]
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	category, err := h.catalogService.GetCategory(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to get category")
	}

	return response.Success(c, "Category retrieved successfully", category)
}

// ListCategories returns all categories
// @Summary List categories
// @Description List all catalog categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Response
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalogService.ListCategories(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list categories")
	}

	return response.Success(c, "Categories retrieved successfully", categories)
}

// UpdateCategory updates a category
// @Summary Update category
// @Description Update a category's name and description
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param body body services.CreateCategoryInput true "Category data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	var req services.CreateCategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	category, err := h.catalogService.UpdateCategory(c.Context(), id, &req)
	if err != nil {
		return h.mapError(c, err, "Failed to update category")
	}

	return response.Success(c, "Category updated successfully", category)
}

// DeleteCategory removes a category
// @Summary Delete category
// @Description Delete a category that has no items
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	if err := h.catalogService.DeleteCategory(c.Context(), id); err != nil {
		return h.mapError(c, err, "Failed to delete category")
	}

	return response.Success(c, "Category deleted successfully", nil)
}

// ListItemsByCategory returns a category's items
// @Summary List items in category
// @Description List all catalog items in a category
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /categories/{id}/items [get]
func (h *CatalogHandler) ListItemsByCategory(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid category ID")
	}

	items, err := h.catalogService.ListItemsByCategory(c.Context(), id)
	if err != nil {
		return h.mapError(c, err, "Failed to list category items")
	}

	return response.Success(c, "Items retrieved successfully", items)
}

func (h *CatalogHandler) mapError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return response.NotFound(c, "Item not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		return response.NotFound(c, "Category not found")
	case errors.Is(err, services.ErrISBNAlreadyUsed):
		return response.Conflict(c, "ISBN already registered")
	case errors.Is(err, services.ErrItemHasLoans):
		return response.Conflict(c, "Item has active loan records")
	case errors.Is(err, services.ErrCategoryHasItems):
		return response.Conflict(c, "Category still has items")
	case errors.Is(err, services.ErrCategoryNameUsed):
		return response.Conflict(c, "Category name already exists")
	default:
		return response.InternalServerError(c, fallback)
	}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
