package server

import (
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

const taxonomyCacheTTL = 10 * time.Minute

// TaxonomyRequest is the shared create/update body for categories and tags.
type TaxonomyRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (r *TaxonomyRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return models.NewValidationError("Name is required")
	}
	if r.Slug == "" {
		r.Slug = slug.Make(r.Name)
	}
	return nil
}

// CreateCategory creates a category. Superusers only.
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req TaxonomyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := req.normalize(); err != nil {
		return models.RespondWithAppError(c, err)
	}

	category := &models.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}
	if err := s.categoryRepo.Create(c.UserContext(), category); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "categories:all")
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GetCategories lists all categories, cache-aside.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	var categories []models.Category
	if limit == defaultPageSize && offset == 0 {
		err := cache.CacheAside(c.UserContext(), "categories:all", &categories, taxonomyCacheTTL, func() error {
			var err error
			categories, err = s.categoryRepo.List(c.UserContext(), limit, offset)
			return err
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(categories)
	}

	categories, err := s.categoryRepo.List(c.UserContext(), limit, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory returns a category by ID.
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	category, err := s.categoryRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(category)
}

// UpdateCategory updates a category. Superusers only.
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	category, err := s.categoryRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req TaxonomyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name != "" {
		category.Name = strings.TrimSpace(req.Name)
	}
	if req.Slug != "" {
		category.Slug = req.Slug
	}
	if req.Description != "" {
		category.Description = req.Description
	}

	if err := s.categoryRepo.Update(c.UserContext(), category); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "categories:all")
	return c.JSON(category)
}

// DeleteCategory deletes a category. Superusers only.
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.categoryRepo.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "categories:all")
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateTag creates a tag. Superusers only.
func (s *Server) CreateTag(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req TaxonomyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := req.normalize(); err != nil {
		return models.RespondWithAppError(c, err)
	}

	tag := &models.Tag{
		Name: req.Name,
		Slug: req.Slug,
	}
	if err := s.tagRepo.Create(c.UserContext(), tag); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "tags:all")
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// GetTags lists all tags, cache-aside.
func (s *Server) GetTags(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	var tags []models.Tag
	if limit == defaultPageSize && offset == 0 {
		err := cache.CacheAside(c.UserContext(), "tags:all", &tags, taxonomyCacheTTL, func() error {
			var err error
			tags, err = s.tagRepo.List(c.UserContext(), limit, offset)
			return err
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(tags)
	}

	tags, err := s.tagRepo.List(c.UserContext(), limit, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tags)
}

// GetTag returns a tag by ID.
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tag, err := s.tagRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tag)
}

// UpdateTag updates a tag. Superusers only.
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tag, err := s.tagRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req TaxonomyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name != "" {
		tag.Name = strings.TrimSpace(req.Name)
	}
	if req.Slug != "" {
		tag.Slug = req.Slug
	}

	if err := s.tagRepo.Update(c.UserContext(), tag); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "tags:all")
	return c.JSON(tag)
}

// DeleteTag deletes a tag. Superusers only.
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	if err := auth.RequireSuperuser(s.currentUser(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}

	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.tagRepo.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), "tags:all")
	return c.SendStatus(fiber.StatusNoContent)
}
