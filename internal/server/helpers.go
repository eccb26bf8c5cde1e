package server

import (
	"fmt"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads limit/offset query params with sane bounds.
func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// uuidParam parses a UUID path parameter.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, models.NewValidationError(fmt.Sprintf("Invalid %s parameter", name))
	}
	return id, nil
}

// uuidQuery parses an optional UUID query parameter. A missing param
// yields (nil, nil); a malformed one is a validation error.
func uuidQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid %s parameter", name))
	}
	return &id, nil
}
