package server

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const postCacheTTL = 5 * time.Minute

// CreatePostRequest represents the post creation request body
type CreatePostRequest struct {
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Summary     string      `json:"summary"`
	Slug        string      `json:"slug"`
	IsPublished bool        `json:"is_published"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	TagIDs      []uuid.UUID `json:"tag_ids"`
}

// UpdatePostRequest represents the post update request body
type UpdatePostRequest struct {
	Title       *string      `json:"title"`
	Content     *string      `json:"content"`
	Summary     *string      `json:"summary"`
	Slug        *string      `json:"slug"`
	IsPublished *bool        `json:"is_published"`
	CategoryIDs *[]uuid.UUID `json:"category_ids"`
	TagIDs      *[]uuid.UUID `json:"tag_ids"`
}

// CreatePost handles post creation. The author is always the
// authenticated user.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title and content are required"))
	}

	postSlug := req.Slug
	if postSlug == "" {
		postSlug = slug.Make(req.Title)
	}
	if existing, _ := s.postRepo.GetBySlug(c.UserContext(), postSlug); existing != nil {
		return models.RespondWithAppError(c, models.NewConflictError("Post slug already exists"))
	}

	post := &models.Post{
		Title:       req.Title,
		Slug:        postSlug,
		Content:     req.Content,
		Summary:     req.Summary,
		IsPublished: req.IsPublished,
		AuthorID:    s.currentUser(c).ID,
	}
	if err := s.postRepo.Create(c.UserContext(), post); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if len(req.CategoryIDs) > 0 {
		if err := s.postRepo.ReplaceCategories(c.UserContext(), post, req.CategoryIDs); err != nil {
			return models.RespondWithAppError(c, err)
		}
	}
	if len(req.TagIDs) > 0 {
		if err := s.postRepo.ReplaceTags(c.UserContext(), post, req.TagIDs); err != nil {
			return models.RespondWithAppError(c, err)
		}
	}

	full, err := s.postRepo.GetByID(c.UserContext(), post.ID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(full)
}

// GetPosts lists posts. Anonymous readers see published posts only;
// owners and superusers may request drafts with published=false.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	authorID, err := uuidQuery(c, "author_id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	categoryID, err := uuidQuery(c, "category_id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	tagID, err := uuidQuery(c, "tag_id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	filter := repository.PostFilter{
		PublishedOnly: true,
		AuthorID:      authorID,
		CategoryID:    categoryID,
		TagID:         tagID,
	}

	if c.Query("published") == "false" {
		actor := s.optionalUser(c)
		if actor != nil && (actor.IsSuperuser || (authorID != nil && *authorID == actor.ID)) {
			filter.PublishedOnly = false
		}
	}

	posts, err := s.postRepo.List(c.UserContext(), filter, limit, offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPost returns a post by ID. Drafts are visible to their author and
// superusers only; everyone else gets the same NotFound an absent post
// would produce.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := s.checkPostVisible(c, post); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// GetPostBySlug returns a post by its slug, cache-aside for published
// posts since slugs are the hot public read path.
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	postSlug := c.Params("slug")

	var cached models.Post
	key := fmt.Sprintf("post:slug:%s", postSlug)
	if found, _ := cache.GetJSON(c.UserContext(), key, &cached); found {
		return c.JSON(&cached)
	}

	post, err := s.postRepo.GetBySlug(c.UserContext(), postSlug)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := s.checkPostVisible(c, post); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if post.IsPublished {
		_ = cache.SetJSON(c.UserContext(), key, post, postCacheTTL)
	}
	return c.JSON(post)
}

// UpdatePost updates a post. Owner or superuser only.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), post.AuthorID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	oldSlug := post.Slug
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Title cannot be empty"))
		}
		post.Title = title
	}
	if req.Slug != nil && *req.Slug != post.Slug {
		if existing, _ := s.postRepo.GetBySlug(c.UserContext(), *req.Slug); existing != nil {
			return models.RespondWithAppError(c, models.NewConflictError("Post slug already exists"))
		}
		post.Slug = *req.Slug
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Summary != nil {
		post.Summary = *req.Summary
	}
	if req.IsPublished != nil {
		post.IsPublished = *req.IsPublished
	}

	if err := s.postRepo.Update(c.UserContext(), post); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if req.CategoryIDs != nil {
		if err := s.postRepo.ReplaceCategories(c.UserContext(), post, *req.CategoryIDs); err != nil {
			return models.RespondWithAppError(c, err)
		}
	}
	if req.TagIDs != nil {
		if err := s.postRepo.ReplaceTags(c.UserContext(), post, *req.TagIDs); err != nil {
			return models.RespondWithAppError(c, err)
		}
	}

	cache.Invalidate(c.UserContext(),
		fmt.Sprintf("post:slug:%s", oldSlug),
		fmt.Sprintf("post:slug:%s", post.Slug))

	full, err := s.postRepo.GetByID(c.UserContext(), post.ID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(full)
}

// DeletePost deletes a post and all its comments. Owner or superuser only.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), post.AuthorID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.postRepo.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.Invalidate(c.UserContext(), fmt.Sprintf("post:slug:%s", post.Slug))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) checkPostVisible(c *fiber.Ctx, post *models.Post) error {
	if post.IsPublished {
		return nil
	}
	actor := s.optionalUser(c)
	if actor != nil && auth.IsOwnerOrSuperuser(actor, post.AuthorID) {
		return nil
	}
	return models.NewNotFoundError("Post", post.ID)
}
