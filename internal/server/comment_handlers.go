package server

import (
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateCommentRequest represents the comment creation request body.
// Authorship is never taken from the body.
type CreateCommentRequest struct {
	Content  string     `json:"content"`
	PostID   uuid.UUID  `json:"post_id"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ReplyRequest represents the reply creation request body.
type ReplyRequest struct {
	Content string `json:"content"`
}

// UpdateCommentRequest represents the comment update request body.
// Only the text can change; author, post and parent are immutable.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment creates a root comment or, when parent_id is set, a reply.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Content is required"))
	}
	if req.PostID == uuid.Nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post_id is required"))
	}

	// The post must exist and be readable by the commenter.
	post, err := s.postRepo.GetByID(c.UserContext(), req.PostID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	actor := s.currentUser(c)
	if !post.IsPublished && !auth.IsOwnerOrSuperuser(actor, post.AuthorID) {
		return models.RespondWithAppError(c, models.NewNotFoundError("Post", post.ID))
	}

	comment, err := s.commentRepo.Create(c.UserContext(), &models.Comment{
		Content:  req.Content,
		PostID:   req.PostID,
		UserID:   actor.ID,
		ParentID: req.ParentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ReplyToComment creates a reply under the comment in the path. The
// post is inherited from the parent, so a reply can never land on a
// different post than the comment it answers.
func (s *Server) ReplyToComment(c *fiber.Ctx) error {
	parentID, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Content is required"))
	}

	parent, err := s.commentRepo.GetByID(c.UserContext(), parentID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comment, err := s.commentRepo.Create(c.UserContext(), &models.Comment{
		Content:  req.Content,
		PostID:   parent.PostID,
		UserID:   s.currentUser(c).ID,
		ParentID: &parent.ID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetCommentsByPost lists a post's root comments, newest first, each
// carrying its reply tree down to the default depth.
func (s *Server) GetCommentsByPost(c *fiber.Ctx) error {
	postID, err := uuidParam(c, "postID")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if _, err := s.postRepo.GetByID(c.UserContext(), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	limit, offset := pagination(c)
	comments, err := s.commentRepo.ListByPost(c.UserContext(), postID, offset, limit, repository.DefaultReplyDepth)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// GetCommentsByUser lists a user's comments across posts, newest first,
// without reply trees.
func (s *Server) GetCommentsByUser(c *fiber.Ctx) error {
	userID, err := uuidParam(c, "userID")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	limit, offset := pagination(c)
	comments, err := s.commentRepo.ListByUser(c.UserContext(), userID, offset, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// GetCommentReplies lists the direct children of a comment, oldest
// first. This is the on-demand path below the eager depth bound.
func (s *Server) GetCommentReplies(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	limit, offset := pagination(c)
	replies, err := s.commentRepo.ListReplies(c.UserContext(), id, offset, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(replies)
}

// GetCommentTree returns a comment with its reply tree down to the
// default depth.
func (s *Server) GetCommentTree(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comment, err := s.commentRepo.GetTree(c.UserContext(), id, repository.DefaultReplyDepth)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// UpdateComment edits a comment's text. Author or superuser only.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	var req UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Content is required"))
	}

	comment, err := s.commentRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), comment.UserID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	updated, err := s.commentRepo.UpdateContent(c.UserContext(), id, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment and its whole reply subtree. Author
// or superuser only; reply authors get no say.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comment, err := s.commentRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if err := auth.RequireOwnerOrSuperuser(s.currentUser(c), comment.UserID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if err := s.commentRepo.Delete(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
