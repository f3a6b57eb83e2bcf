// Package response renders every API reply in the single envelope the
// circulation clients consume: {success, message, data, error}.
package response

import "github.com/gofiber/fiber/v2"

// Response is the wire envelope shared by all endpoints.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func send(c *fiber.Ctx, status int, body Response) error {
	return c.Status(status).JSON(body)
}

// Success sends a 200 with the given payload.
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created sends a 201 for a newly written resource.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Paginated sends a 200 whose data carries one page of items plus paging meta.
func Paginated(c *fiber.Ctx, message string, items interface{}, meta interface{}) error {
	return Success(c, message, fiber.Map{
		"items":      items,
		"pagination": meta,
	})
}

// Error sends a failure envelope with the given status code.
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return send(c, statusCode, Response{Success: false, Error: message})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}
